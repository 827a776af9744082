package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/qytetaret/synckit/internal/gateway"
	"github.com/qytetaret/synckit/internal/model"
	"github.com/qytetaret/synckit/internal/store"
)

const bcryptCost = 12

// Gateway is the subset of remote operations the session store consumes.
type Gateway interface {
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	Register(ctx context.Context, draft model.RegisterDraft) (*model.User, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, current, next string) error
	UpdatePreferences(ctx context.Context, prefs model.NotificationPrefs) error
	DeleteAccount(ctx context.Context) error
	SetToken(token string)
}

// Store owns the current session identity. In remote mode it forwards
// credential operations to the gateway and captures the issued token;
// in fallback mode it maintains a local user registry with bcrypt
// credential verification. At most one session is active at a time.
//
// Every public operation returns a structured OpResult; remote and
// storage failures are logged, never raised.
type Store struct {
	local  store.Store
	gw     Gateway
	tokens TokenStore
	log    zerolog.Logger

	mu      sync.Mutex
	remote  bool
	current *model.User
}

// New creates a session store. remote selects which mode credential
// operations run in; the synchronizing store's availability probe
// normally decides this at startup.
func New(local store.Store, gw Gateway, tokens TokenStore, remote bool, log zerolog.Logger) *Store {
	return &Store{
		local:  local,
		gw:     gw,
		tokens: tokens,
		remote: remote,
		log:    log,
	}
}

// SetRemote switches the operating mode.
func (s *Store) SetRemote(remote bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = remote
}

// Current returns the active session user, or nil when logged out.
// The record is loaded from the local store on first use.
func (s *Store) Current(ctx context.Context) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(ctx)
}

func (s *Store) currentLocked(ctx context.Context) *model.User {
	if s.current != nil {
		u := *s.current
		return &u
	}

	u, err := s.local.GetSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("reading persisted session failed")
		return nil
	}
	if u == nil {
		return nil
	}

	s.current = u
	cp := *u
	return &cp
}

// Login authenticates the user. Remote mode forwards to the gateway and
// stores the returned token; fallback mode verifies against the local
// registry by hash comparison.
func (s *Store) Login(ctx context.Context, email, password string) model.OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote {
		token, user, err := s.gw.Login(ctx, email, password)
		if err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("remote login failed")
			return model.Fail("invalid email or password")
		}

		s.gw.SetToken(token)
		if err := s.tokens.Set(token); err != nil {
			s.log.Warn().Err(err).Msg("persisting session token failed")
		}

		return s.activate(ctx, *user)
	}

	user, err := s.local.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("registry lookup failed")
		return model.Fail("invalid email or password")
	}
	if user == nil {
		return model.Fail("invalid email or password")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return model.Fail("invalid email or password")
	}

	return s.activate(ctx, *user)
}

// activate persists the sanitized session record and caches it.
func (s *Store) activate(ctx context.Context, user model.User) model.OpResult {
	sanitized := user.Sanitized()
	if err := s.local.SetSession(ctx, sanitized); err != nil {
		s.log.Error().Err(err).Msg("persisting session failed")
		return model.Fail("could not start session")
	}
	s.current = &sanitized
	return model.OK(sanitized.ID)
}

// Register creates an account. Fallback mode rejects duplicate emails
// and enables every notification channel by default.
func (s *Store) Register(ctx context.Context, draft model.RegisterDraft) model.OpResult {
	if err := draft.Validate(); err != nil {
		return model.Fail("invalid registration details")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remote {
		user, err := s.gw.Register(ctx, draft)
		if err != nil {
			s.log.Warn().Err(err).Msg("remote registration failed")
			return model.Fail("registration failed")
		}
		return model.OK(user.ID)
	}

	existing, err := s.local.GetUserByEmail(ctx, draft.Email)
	if err != nil {
		s.log.Warn().Err(err).Msg("registry lookup failed")
		return model.Fail("registration failed")
	}
	if existing != nil {
		return model.Fail("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(draft.Password), bcryptCost)
	if err != nil {
		s.log.Error().Err(err).Msg("hashing password failed")
		return model.Fail("registration failed")
	}

	user := model.User{
		ID:           uuid.New().String(),
		Name:         draft.Name,
		Email:        draft.Email,
		PasswordHash: string(hash),
		Neighborhood: draft.Neighborhood,
		Prefs:        model.DefaultNotificationPrefs(),
		CreatedAt:    time.Now(),
	}

	if err := s.local.CreateUser(ctx, user); err != nil {
		s.log.Error().Err(err).Msg("creating user failed")
		return model.Fail("registration failed")
	}

	return model.OK(user.ID)
}

// Logout clears the current-session record and token. The underlying
// user registry is untouched.
func (s *Store) Logout(ctx context.Context) model.OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.local.ClearSession(ctx); err != nil {
		s.log.Error().Err(err).Msg("clearing session failed")
		return model.Fail("could not end session")
	}
	if err := s.tokens.Clear(); err != nil {
		s.log.Debug().Err(err).Msg("clearing session token failed")
	}
	s.gw.SetToken("")
	s.current = nil

	return model.OpResult{Success: true}
}

// UpdateProfile changes the active user's profile fields, mirroring the
// change into the session record.
func (s *Store) UpdateProfile(ctx context.Context, update model.ProfileUpdate) model.OpResult {
	if err := update.Validate(); err != nil {
		return model.Fail("invalid profile details")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked(ctx)
	if cur == nil {
		return model.Fail("no active session")
	}

	if s.remote {
		user, err := s.gw.UpdateProfile(ctx, update)
		if err != nil {
			s.log.Warn().Err(err).Msg("remote profile update failed")
			return model.Fail("could not update profile")
		}
		return s.activate(ctx, *user)
	}

	user, err := s.local.GetUserByID(ctx, cur.ID)
	if err != nil || user == nil {
		s.log.Warn().Err(err).Str("user_id", cur.ID).Msg("registry record missing")
		return model.Fail("account not found")
	}

	user.Name = update.Name
	user.Neighborhood = update.Neighborhood

	if err := s.local.UpdateUser(ctx, *user); err != nil {
		s.log.Error().Err(err).Msg("updating user failed")
		return model.Fail("could not update profile")
	}

	return s.activate(ctx, *user)
}

// ChangePassword verifies the current credential before storing a new
// hash. The session record is unaffected since it never holds the hash.
func (s *Store) ChangePassword(ctx context.Context, current, next string) model.OpResult {
	if len(next) < 6 {
		return model.Fail("new password must be at least 6 characters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked(ctx)
	if cur == nil {
		return model.Fail("no active session")
	}

	if s.remote {
		if err := s.gw.ChangePassword(ctx, current, next); err != nil {
			s.log.Warn().Err(err).Msg("remote password change failed")
			if errors.Is(err, gateway.ErrRejected) {
				return model.Fail("current password is incorrect")
			}
			return model.Fail("could not change password")
		}
		return model.OpResult{Success: true}
	}

	user, err := s.local.GetUserByID(ctx, cur.ID)
	if err != nil || user == nil {
		s.log.Warn().Err(err).Str("user_id", cur.ID).Msg("registry record missing")
		return model.Fail("account not found")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return model.Fail("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		s.log.Error().Err(err).Msg("hashing password failed")
		return model.Fail("could not change password")
	}

	user.PasswordHash = string(hash)
	if err := s.local.UpdateUser(ctx, *user); err != nil {
		s.log.Error().Err(err).Msg("updating user failed")
		return model.Fail("could not change password")
	}

	return model.OpResult{Success: true}
}

// UpdateNotificationPreferences replaces the per-channel switches for
// the active user and mirrors them into the session record.
func (s *Store) UpdateNotificationPreferences(ctx context.Context, prefs model.NotificationPrefs) model.OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked(ctx)
	if cur == nil {
		return model.Fail("no active session")
	}

	if s.remote {
		if err := s.gw.UpdatePreferences(ctx, prefs); err != nil {
			s.log.Warn().Err(err).Msg("remote preference update failed")
			return model.Fail("could not update preferences")
		}
		cur.Prefs = prefs
		return s.activate(ctx, *cur)
	}

	user, err := s.local.GetUserByID(ctx, cur.ID)
	if err != nil || user == nil {
		s.log.Warn().Err(err).Str("user_id", cur.ID).Msg("registry record missing")
		return model.Fail("account not found")
	}

	user.Prefs = prefs
	if err := s.local.UpdateUser(ctx, *user); err != nil {
		s.log.Error().Err(err).Msg("updating user failed")
		return model.Fail("could not update preferences")
	}

	return s.activate(ctx, *user)
}

// DeleteAccount removes the active user's account and ends the session.
func (s *Store) DeleteAccount(ctx context.Context) model.OpResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.currentLocked(ctx)
	if cur == nil {
		return model.Fail("no active session")
	}

	if s.remote {
		if err := s.gw.DeleteAccount(ctx); err != nil {
			s.log.Warn().Err(err).Msg("remote account deletion failed")
			return model.Fail("could not delete account")
		}
	} else {
		if err := s.local.DeleteUser(ctx, cur.ID); err != nil {
			s.log.Error().Err(err).Msg("deleting user failed")
			return model.Fail("could not delete account")
		}
	}

	if err := s.local.ClearSession(ctx); err != nil {
		s.log.Error().Err(err).Msg("clearing session failed")
	}
	if err := s.tokens.Clear(); err != nil {
		s.log.Debug().Err(err).Msg("clearing session token failed")
	}
	s.gw.SetToken("")
	s.current = nil

	return model.OpResult{Success: true}
}

// TokenClaims is the client-side view of the stored gateway token.
// The claims are decoded without signature verification; only the
// server decides whether the token is actually valid.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
	Expired   bool
}

// TokenInfo decodes the stored gateway token for display purposes.
func (s *Store) TokenInfo() (*TokenClaims, error) {
	token, err := s.tokens.Get()
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	info := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
		info.Expired = exp.Time.Before(time.Now())
	}

	return info, nil
}
