package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qytetaret/synckit/internal/config"
	"github.com/qytetaret/synckit/internal/model"
	"github.com/qytetaret/synckit/internal/store"
)

// Gateway is the subset of remote operations the delivery service consumes.
type Gateway interface {
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, id string) error
}

// SessionSource supplies the active user, whose preferences gate the
// sound side effect.
type SessionSource interface {
	Current(ctx context.Context) *model.User
}

// Sink receives the delivery side effects. The embedding UI implements
// it; NopSink discards everything.
type Sink interface {
	// Toast shows one transient notification popup.
	Toast(n model.Notification)

	// PlaySound plays the alert sound.
	PlaySound()

	// BadgeCount updates the unread badge.
	BadgeCount(unread int)
}

// NopSink discards all side effects.
type NopSink struct{}

func (NopSink) Toast(model.Notification) {}
func (NopSink) PlaySound()               {}
func (NopSink) BadgeCount(int)           {}

// Service polls the gateway for the current notification list while a
// session is active, detects new entries by diffing identifiers against
// the previously known list, and applies read/delete actions
// optimistically: the local list changes first and a failed remote
// update is logged, never rolled back. The divergence heals on the next
// poll cycle.
type Service struct {
	gw    Gateway
	local store.Store
	sess  SessionSource
	sink  Sink
	log   zerolog.Logger

	interval  time.Duration
	debounce  time.Duration
	maxStored int
	now       func() time.Time

	mu        sync.Mutex
	userID    string
	known     []model.Notification
	unread    int
	lastFetch time.Time
	stopCh    chan struct{}
	running   bool
}

// New creates the delivery service. sink may be nil to discard side effects.
func New(gw Gateway, local store.Store, sess SessionSource, sink Sink, cfg config.NotifyConfig, log zerolog.Logger) *Service {
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{
		gw:        gw,
		local:     local,
		sess:      sess,
		sink:      sink,
		log:       log,
		interval:  cfg.PollInterval(),
		debounce:  cfg.OpenDebounce(),
		maxStored: cfg.MaxStored,
		now:       time.Now,
	}
}

// Start begins polling for the given user: an immediate fetch, then one
// per interval until Stop. The locally persisted list warms the known
// set so a restart does not re-announce old notifications. Calling
// Start while running is a no-op.
func (s *Service) Start(ctx context.Context, userID string) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.userID = userID
	s.stopCh = make(chan struct{})

	if persisted, err := s.local.GetNotifications(ctx, userID); err == nil {
		s.known = persisted
		s.unread = countUnread(persisted)
	} else {
		s.log.Warn().Err(err).Msg("loading persisted notifications failed")
	}
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.poll(stopCh)
}

// Stop halts polling. It is idempotent and returns once the schedule is
// released; the session has ended.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// Running reports whether a polling schedule is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// poll runs the fetch loop until the stop channel closes.
func (s *Service) poll(stopCh <-chan struct{}) {
	s.pollOnce(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.pollOnce(context.Background())
		}
	}
}

// pollOnce performs one fetch cycle: retrieve the full list, diff it
// against the known one by identifier, replace the known list, recount
// unread, persist the bounded list, and fire side effects for new
// entries. A gateway failure keeps the current list.
func (s *Service) pollOnce(ctx context.Context) {
	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	list, err := s.gw.ListNotifications(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("notification fetch failed, keeping known list")
		return
	}

	s.mu.Lock()
	knownIDs := make(map[string]bool, len(s.known))
	for _, n := range s.known {
		knownIDs[n.ID] = true
	}

	var fresh []model.Notification
	for _, n := range list {
		if !knownIDs[n.ID] {
			fresh = append(fresh, n)
		}
	}

	s.known = list
	s.unread = countUnread(list)
	s.lastFetch = s.now()
	unread := s.unread
	maxStored := s.maxStored
	s.mu.Unlock()

	if err := s.local.SaveNotifications(ctx, userID, list, maxStored); err != nil {
		s.log.Warn().Err(err).Msg("persisting notifications failed")
	}

	if len(fresh) > 0 {
		if s.soundEnabled(ctx) {
			s.sink.PlaySound()
		}
		// One toast per cycle: only the first new entry pops up, the
		// rest just move the counts.
		s.sink.Toast(fresh[0])
	}
	s.sink.BadgeCount(unread)
}

// soundEnabled consults the session user's push preference.
func (s *Service) soundEnabled(ctx context.Context) bool {
	if s.sess == nil {
		return true
	}
	u := s.sess.Current(ctx)
	if u == nil {
		return true
	}
	return u.Prefs.Push
}

// Open is called when the user opens the notification panel. It
// refetches only when the in-memory list is older than the debounce
// gate, then returns the current list. Before Start has set a user it
// returns the empty list without touching the gateway.
func (s *Service) Open(ctx context.Context) []model.Notification {
	s.mu.Lock()
	noUser := s.userID == ""
	stale := s.now().Sub(s.lastFetch) >= s.debounce
	s.mu.Unlock()

	if noUser {
		return []model.Notification{}
	}
	if stale {
		s.pollOnce(ctx)
	}
	return s.Notifications()
}

// Notifications returns a copy of the known list.
func (s *Service) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, len(s.known))
	copy(out, s.known)
	return out
}

// Unread returns the current unread count.
func (s *Service) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// MarkRead marks a notification read. The local list and store change
// immediately; the remote update is best-effort. Marking an already
// read entry changes nothing.
func (s *Service) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	changed := false
	for i := range s.known {
		if s.known[i].ID == id && !s.known[i].Read {
			s.known[i].Read = true
			s.unread--
			changed = true
			break
		}
	}
	unread := s.unread
	s.mu.Unlock()

	if !changed {
		return
	}

	s.persist(ctx)
	s.sink.BadgeCount(unread)

	if err := s.gw.MarkNotificationRead(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("notification_id", id).
			Msg("remote read-mark failed, keeping local state")
	}
}

// MarkAllRead marks every known notification read, optimistically.
func (s *Service) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	for i := range s.known {
		s.known[i].Read = true
	}
	s.unread = 0
	userID := s.userID
	s.mu.Unlock()

	s.persist(ctx)
	s.sink.BadgeCount(0)

	if err := s.gw.MarkAllNotificationsRead(ctx, userID); err != nil {
		s.log.Warn().Err(err).Msg("remote mark-all failed, keeping local state")
	}
}

// Delete removes a notification from the local list, optimistically.
func (s *Service) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	changed := false
	for i := range s.known {
		if s.known[i].ID == id {
			s.known = append(s.known[:i], s.known[i+1:]...)
			changed = true
			break
		}
	}
	s.unread = countUnread(s.known)
	unread := s.unread
	s.mu.Unlock()

	if !changed {
		return
	}

	s.persist(ctx)
	s.sink.BadgeCount(unread)

	if err := s.gw.DeleteNotification(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("notification_id", id).
			Msg("remote delete failed, keeping local state")
	}
}

// persist writes the current known list to the local store.
func (s *Service) persist(ctx context.Context) {
	s.mu.Lock()
	userID := s.userID
	list := make([]model.Notification, len(s.known))
	copy(list, s.known)
	maxStored := s.maxStored
	s.mu.Unlock()

	if err := s.local.SaveNotifications(ctx, userID, list, maxStored); err != nil {
		s.log.Warn().Err(err).Msg("persisting notifications failed")
	}
}

// countUnread counts entries with read=false.
func countUnread(list []model.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
