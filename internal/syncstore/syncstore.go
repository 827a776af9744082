package syncstore

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qytetaret/synckit/internal/cache"
	"github.com/qytetaret/synckit/internal/model"
	"github.com/qytetaret/synckit/internal/store"
)

// degreesPerKm converts a kilometer radius to a degree threshold for
// the bounding-box distance approximation (1 degree is roughly 111 km).
const degreesPerKm = 1.0 / 111.0

// Gateway is the subset of remote operations the synchronizing store consumes.
type Gateway interface {
	ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
	GetReport(ctx context.Context, id string) (*model.Report, error)
	CreateReport(ctx context.Context, draft model.ReportDraft) (*model.Report, error)
	UpdateStatus(ctx context.Context, id, status, comment string) (*model.Report, error)
	AddComment(ctx context.Context, id, text string) (*model.Report, error)
	ReportsInRadius(ctx context.Context, lat, lng, distanceKm float64) ([]model.Report, error)
}

// SessionSource supplies the identity that local writes are attributed to.
type SessionSource interface {
	Current(ctx context.Context) *model.User
}

// Store is the report data facade used by the rest of the application.
// Every operation prefers the remote gateway and falls back to the
// local persistent store on any remote failure; remote successes are
// written through locally so both stay eventually consistent. Callers
// never observe a remote failure as an error.
type Store struct {
	gw    Gateway
	local store.Store
	sess  SessionSource
	cc    *cache.Cache
	log   zerolog.Logger
	now   func() time.Time

	mu        sync.Mutex
	available bool
}

// New creates the store and runs the availability probe: one gateway
// read decides the operating mode for the rest of the session. On a
// successful probe the local collection is refreshed from the response;
// on failure the store enters fallback mode and seeds sample records
// into an empty local collection. cc may be nil to disable the response
// cache. Only local storage failures are returned.
func New(ctx context.Context, gw Gateway, local store.Store, sess SessionSource, cc *cache.Cache, log zerolog.Logger) (*Store, error) {
	s := &Store{
		gw:    gw,
		local: local,
		sess:  sess,
		cc:    cc,
		log:   log,
		now:   time.Now,
	}

	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// probe issues one gateway read and records the result.
func (s *Store) probe(ctx context.Context) error {
	reports, err := s.gw.ListReports(ctx, model.ReportFilter{})
	if err == nil {
		s.setAvailable(true)
		if err := s.local.ReplaceReports(ctx, reports); err != nil {
			return fmt.Errorf("refreshing local reports: %w", err)
		}
		return nil
	}

	s.log.Warn().Err(err).Msg("gateway unavailable, entering fallback mode")
	s.setAvailable(false)

	count, err := s.local.CountReports(ctx)
	if err != nil {
		return fmt.Errorf("checking local reports: %w", err)
	}
	if count == 0 {
		if err := s.local.ReplaceReports(ctx, sampleReports(s.now())); err != nil {
			return fmt.Errorf("seeding sample reports: %w", err)
		}
	}

	return nil
}

// Reprobe re-runs the availability probe on demand. The default
// lifecycle never calls it: a session that starts in fallback mode
// stays there until the embedding application asks otherwise.
func (s *Store) Reprobe(ctx context.Context) bool {
	if err := s.probe(ctx); err != nil {
		s.log.Warn().Err(err).Msg("reprobe failed")
	}
	return s.Available()
}

// Available reports whether the gateway is currently believed reachable.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

func (s *Store) setAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = v
}

// GetAll returns the report collection, optionally filtered. Remote
// results are written through to the local store; on remote failure the
// locally cached collection is served instead.
func (s *Store) GetAll(ctx context.Context, filter model.ReportFilter) []model.Report {
	key := listCacheKey("/reports", filter)
	if hit, ok := s.cacheGet(key); ok {
		return hit
	}

	if s.Available() {
		reports, err := s.gw.ListReports(ctx, filter)
		if err == nil {
			s.writeThrough(ctx, reports)
			s.cachePut(key, reports)
			return nonNil(reports)
		}
		s.log.Warn().Err(err).Msg("remote list failed, serving local reports")
	}

	reports, err := s.local.GetReports(ctx, filter)
	if err != nil {
		s.log.Error().Err(err).Msg("local report read failed")
		return []model.Report{}
	}
	return nonNil(reports)
}

// GetByID returns a single report, or nil when it does not exist anywhere.
func (s *Store) GetByID(ctx context.Context, id string) *model.Report {
	if s.Available() {
		r, err := s.gw.GetReport(ctx, id)
		if err == nil {
			s.writeThrough(ctx, []model.Report{*r})
			return r
		}
		s.log.Warn().Err(err).Str("report_id", id).
			Msg("remote read failed, serving local report")
	}

	r, err := s.local.GetReportByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("local report read failed")
		return nil
	}
	return r
}

// Save validates and submits a new report. In fallback mode the record
// gets an identifier synthesized from the current timestamp and a
// pending status when none was supplied.
func (s *Store) Save(ctx context.Context, draft model.ReportDraft) model.OpResult {
	if err := draft.Validate(); err != nil {
		return model.Fail("invalid report details")
	}

	if s.Available() {
		r, err := s.gw.CreateReport(ctx, draft)
		if err == nil {
			s.writeThrough(ctx, []model.Report{*r})
			return model.OK(r.ID)
		}
		s.log.Warn().Err(err).Msg("remote create failed, saving locally")
	}

	now := s.now()
	status := draft.Status
	if status == "" {
		status = model.StatusPending
	}

	r := model.Report{
		ID:           strconv.FormatInt(now.UnixMilli(), 10),
		Title:        draft.Title,
		Description:  draft.Description,
		Category:     draft.Category,
		Subcategory:  draft.Subcategory,
		Type:         draft.Type,
		Address:      draft.Address,
		Neighborhood: draft.Neighborhood,
		Lat:          draft.Lat,
		Lng:          draft.Lng,
		Severity:     draft.Severity,
		Status:       status,
		CreatedAt:    now,
		UserID:       s.currentUserID(ctx),
	}

	if err := s.local.UpsertReport(ctx, r); err != nil {
		s.log.Error().Err(err).Msg("local save failed")
		return model.Fail("could not save report")
	}

	return model.OK(r.ID)
}

// UpdateStatus transitions a report to a new status. The history entry
// for that status name is upserted: a repeated transition overwrites
// the prior entry.
func (s *Store) UpdateStatus(ctx context.Context, id, status, comment string) model.OpResult {
	if !model.ValidStatus(status) {
		return model.Fail("invalid status")
	}

	if s.Available() {
		r, err := s.gw.UpdateStatus(ctx, id, status, comment)
		if err == nil {
			s.writeThrough(ctx, []model.Report{*r})
			return model.OK(r.ID)
		}
		s.log.Warn().Err(err).Str("report_id", id).
			Msg("remote status update failed, updating locally")
	}

	r, err := s.local.GetReportByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("local report read failed")
		return model.Fail("could not update status")
	}
	if r == nil {
		return model.Fail("report not found")
	}

	now := s.now()
	r.Status = status
	r.LastUpdated = now
	if r.StatusHistory == nil {
		r.StatusHistory = make(map[string]model.StatusChange)
	}
	r.StatusHistory[status] = model.StatusChange{Date: now, Comment: comment}

	if err := s.local.UpsertReport(ctx, *r); err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("local status update failed")
		return model.Fail("could not update status")
	}

	return model.OK(id)
}

// AddComment appends a comment to a report, attributed to the current
// session user or the anonymous sentinel.
func (s *Store) AddComment(ctx context.Context, id, text string) model.OpResult {
	if text == "" {
		return model.Fail("comment text is required")
	}

	if s.Available() {
		r, err := s.gw.AddComment(ctx, id, text)
		if err == nil {
			s.writeThrough(ctx, []model.Report{*r})
			return model.OK(r.ID)
		}
		s.log.Warn().Err(err).Str("report_id", id).
			Msg("remote comment failed, commenting locally")
	}

	r, err := s.local.GetReportByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("local report read failed")
		return model.Fail("could not add comment")
	}
	if r == nil {
		return model.Fail("report not found")
	}

	r.Comments = append(r.Comments, model.Comment{
		ID:        uuid.New().String(),
		Text:      text,
		Timestamp: s.now(),
		User:      s.currentUserID(ctx),
	})

	if err := s.local.UpsertReport(ctx, *r); err != nil {
		s.log.Error().Err(err).Str("report_id", id).Msg("local comment failed")
		return model.Fail("could not add comment")
	}

	return model.OK(id)
}

// GetInRadius returns the reports within distanceKm of the given point.
// The local path approximates distance with a bounding box: the radius
// converts to a degree threshold and a record matches when both its
// absolute latitude and longitude deltas are strictly below it.
func (s *Store) GetInRadius(ctx context.Context, lat, lng, distanceKm float64) []model.Report {
	key := fmt.Sprintf("/reports/radius?lat=%g&lng=%g&distance=%g", lat, lng, distanceKm)
	if hit, ok := s.cacheGet(key); ok {
		return hit
	}

	if s.Available() {
		reports, err := s.gw.ReportsInRadius(ctx, lat, lng, distanceKm)
		if err == nil {
			s.writeThrough(ctx, reports)
			s.cachePut(key, reports)
			return nonNil(reports)
		}
		s.log.Warn().Err(err).Msg("remote radius search failed, filtering locally")
	}

	all, err := s.local.GetReports(ctx, model.ReportFilter{})
	if err != nil {
		s.log.Error().Err(err).Msg("local report read failed")
		return []model.Report{}
	}

	threshold := distanceKm * degreesPerKm
	matches := []model.Report{}
	for _, r := range all {
		if math.Abs(r.Lat-lat) < threshold && math.Abs(r.Lng-lng) < threshold {
			matches = append(matches, r)
		}
	}
	return matches
}

// writeThrough upserts remote results into the local store. Failures
// are logged; the remote result remains the value returned to the caller.
func (s *Store) writeThrough(ctx context.Context, reports []model.Report) {
	for _, r := range reports {
		if err := s.local.UpsertReport(ctx, r); err != nil {
			s.log.Warn().Err(err).Str("report_id", r.ID).Msg("write-through failed")
		}
	}
}

// currentUserID resolves the identity local writes are attributed to.
func (s *Store) currentUserID(ctx context.Context) string {
	if s.sess != nil {
		if u := s.sess.Current(ctx); u != nil {
			return u.ID
		}
	}
	return model.AnonymousUserID
}

func (s *Store) cacheGet(key string) ([]model.Report, bool) {
	if s.cc == nil {
		return nil, false
	}
	raw, ok := s.cc.Get(cache.CategoryAPI, key)
	if !ok {
		return nil, false
	}
	reports, ok := raw.([]model.Report)
	if !ok {
		return nil, false
	}
	return nonNil(reports), true
}

func (s *Store) cachePut(key string, reports []model.Report) {
	if s.cc == nil {
		return
	}
	s.cc.Put(cache.CategoryAPI, key, reports)
}

// listCacheKey derives the cache key for a filtered listing from its
// request shape.
func listCacheKey(path string, filter model.ReportFilter) string {
	q := url.Values{}
	if filter.Category != nil {
		q.Set("category", *filter.Category)
	}
	if filter.Subcategory != nil {
		q.Set("subcategory", *filter.Subcategory)
	}
	if filter.Status != nil {
		q.Set("status", *filter.Status)
	}
	if filter.Neighborhood != nil {
		q.Set("neighborhood", *filter.Neighborhood)
	}
	if filter.UserID != nil {
		q.Set("userId", *filter.UserID)
	}
	if filter.Query != nil {
		q.Set("search", *filter.Query)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

// nonNil normalizes a nil slice to an empty one so callers always get a
// sequence value.
func nonNil(reports []model.Report) []model.Report {
	if reports == nil {
		return []model.Report{}
	}
	return reports
}
