package syncstore

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qytetaret/synckit/internal/cache"
	"github.com/qytetaret/synckit/internal/model"
	"github.com/qytetaret/synckit/tests/testutil"
)

type fixedSession struct {
	user *model.User
}

func (f fixedSession) Current(context.Context) *model.User {
	return f.user
}

func newTestStore(t *testing.T, gw Gateway, sess SessionSource, cc *cache.Cache) *Store {
	t.Helper()

	local := testutil.NewTestStore(t)
	s, err := New(context.Background(), gw, local, sess, cc, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func localReport(id string, lat, lng float64) model.Report {
	return model.Report{
		ID:           id,
		Title:        "Raport " + id,
		Description:  "pershkrim",
		Category:     "infrastructure",
		Neighborhood: "njesia5",
		Lat:          lat,
		Lng:          lng,
		Status:       model.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestProbeSuccessRefreshesLocal(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Reports = []model.Report{localReport("remote-1", 41.3, 19.8)}

	s := newTestStore(t, gw, nil, nil)
	assert.True(t, s.Available())

	gw.SetDown(true)
	got := s.GetAll(context.Background(), model.ReportFilter{})
	require.Len(t, got, 1)
	assert.Equal(t, "remote-1", got[0].ID)
}

func TestProbeFailureSeedsEmptyStore(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	s := newTestStore(t, gw, nil, nil)
	assert.False(t, s.Available())

	got := s.GetAll(context.Background(), model.ReportFilter{})
	assert.NotEmpty(t, got, "fallback mode should start with sample records")
}

func TestProbeFailureKeepsExistingLocalData(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	local := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, local.UpsertReport(ctx, localReport("mine", 41.3, 19.8)))

	s, err := New(ctx, gw, local, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	got := s.GetAll(ctx, model.ReportFilter{})
	require.Len(t, got, 1, "non-empty store must not be seeded over")
	assert.Equal(t, "mine", got[0].ID)
}

func TestGetAllFallsBackTransparently(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Reports = []model.Report{localReport("r1", 41.3, 19.8)}

	s := newTestStore(t, gw, nil, nil)

	// The gateway dies after the probe; the availability flag still
	// says available, so the remote call is attempted and fails.
	gw.SetDown(true)

	got := s.GetAll(context.Background(), model.ReportFilter{})
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestSaveRoundTripFallback(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	s := newTestStore(t, gw, nil, nil)
	ctx := context.Background()

	res := s.Save(ctx, model.ReportDraft{
		Title:        "t",
		Description:  "d",
		Category:     "infrastructure",
		Subcategory:  "road-damage",
		Address:      "a",
		Neighborhood: "njesia5",
		Lat:          41.3,
		Lng:          19.8,
	})
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)

	got := s.GetByID(ctx, res.ID)
	require.NotNil(t, got)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, "infrastructure", got.Category)
	assert.Equal(t, "road-damage", got.Subcategory)
	assert.Equal(t, "a", got.Address)
	assert.Equal(t, "njesia5", got.Neighborhood)
	assert.Equal(t, 41.3, got.Lat)
	assert.Equal(t, 19.8, got.Lng)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestSaveInvalidDraftFails(t *testing.T) {
	gw := testutil.NewFakeGateway()
	s := newTestStore(t, gw, nil, nil)

	res := s.Save(context.Background(), model.ReportDraft{Title: "only a title"})
	assert.False(t, res.Success)
}

func TestSaveWritesThroughOnRemoteSuccess(t *testing.T) {
	gw := testutil.NewFakeGateway()
	s := newTestStore(t, gw, nil, nil)
	ctx := context.Background()

	res := s.Save(ctx, model.ReportDraft{
		Title:       "ndriçimi",
		Description: "d",
		Category:    "utilities",
		Address:     "a",
		Lat:         41.3,
		Lng:         19.8,
	})
	require.True(t, res.Success)
	assert.Equal(t, 1, gw.CallCount("CreateReport"))

	// The created record must be readable locally even after the
	// gateway goes away.
	gw.SetDown(true)
	got := s.GetByID(ctx, res.ID)
	require.NotNil(t, got)
	assert.Equal(t, "ndriçimi", got.Title)
}

func TestRadiusBoundary(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	local := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, local.ReplaceReports(ctx, []model.Report{
		localReport("center", 41.33, 19.82),
		localReport("inside", 41.33+0.99, 19.82),
		localReport("outside", 41.33+1.01, 19.82),
	}))

	s, err := New(ctx, gw, local, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	// 111 km converts to a threshold of exactly 1 degree.
	got := s.GetInRadius(ctx, 41.33, 19.82, 111)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"center", "inside"}, ids)
}

func TestStatusHistoryOverwrite(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	local := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, local.UpsertReport(ctx, localReport("r1", 41.3, 19.8)))

	s, err := New(ctx, gw, local, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	require.True(t, s.UpdateStatus(ctx, "r1", model.StatusInProgress, "c1").Success)
	require.True(t, s.UpdateStatus(ctx, "r1", model.StatusInProgress, "c2").Success)

	got := s.GetByID(ctx, "r1")
	require.NotNil(t, got)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.False(t, got.LastUpdated.IsZero())
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, "c2", got.StatusHistory[model.StatusInProgress].Comment)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	gw := testutil.NewFakeGateway()
	s := newTestStore(t, gw, nil, nil)

	res := s.UpdateStatus(context.Background(), "r1", "closed", "")
	assert.False(t, res.Success)
}

func TestUpdateStatusMissingReportFails(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)
	s := newTestStore(t, gw, nil, nil)

	res := s.UpdateStatus(context.Background(), "nope", model.StatusResolved, "")
	assert.False(t, res.Success)
}

func TestAddCommentAttribution(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	local := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, local.UpsertReport(ctx, localReport("r1", 41.3, 19.8)))

	// No session: the anonymous sentinel signs the comment.
	s, err := New(ctx, gw, local, nil, nil, zerolog.Nop())
	require.NoError(t, err)

	require.True(t, s.AddComment(ctx, "r1", "problem i madh").Success)

	got := s.GetByID(ctx, "r1")
	require.NotNil(t, got)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, model.AnonymousUserID, got.Comments[0].User)
	assert.Equal(t, "problem i madh", got.Comments[0].Text)

	// With a session the comment carries the user's ID.
	s.sess = fixedSession{user: &model.User{ID: "u7"}}
	require.True(t, s.AddComment(ctx, "r1", "dakord").Success)

	got = s.GetByID(ctx, "r1")
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "u7", got.Comments[1].User)
}

func TestGetAllServesCachedResponse(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Reports = []model.Report{localReport("r1", 41.3, 19.8)}

	cc := cache.NewWithOptions(map[cache.Category]cache.Options{
		cache.CategoryAPI: {TTL: time.Minute, MaxEntries: 10},
	}, zerolog.Nop())

	s := newTestStore(t, gw, nil, cc)
	ctx := context.Background()

	// Probe used one ListReports call already.
	calls := gw.CallCount("ListReports")

	first := s.GetAll(ctx, model.ReportFilter{})
	require.Len(t, first, 1)
	assert.Equal(t, calls+1, gw.CallCount("ListReports"))

	second := s.GetAll(ctx, model.ReportFilter{})
	require.Len(t, second, 1)
	assert.Equal(t, calls+1, gw.CallCount("ListReports"), "second read should hit the cache")
}

func TestReprobeRecovers(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)

	s := newTestStore(t, gw, nil, nil)
	require.False(t, s.Available())

	gw.SetDown(false)
	gw.Reports = []model.Report{localReport("r1", 41.3, 19.8)}

	assert.True(t, s.Reprobe(context.Background()))
	assert.True(t, s.Available())
}

func TestGetByIDMissingEverywhereReturnsNil(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.SetDown(true)
	s := newTestStore(t, gw, nil, nil)

	assert.Nil(t, s.GetByID(context.Background(), "missing"))
}
