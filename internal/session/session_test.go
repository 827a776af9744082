package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qytetaret/synckit/internal/model"
	"github.com/qytetaret/synckit/tests/testutil"
)

func newFallbackStore(t *testing.T) (*Store, *testutil.FakeGateway) {
	t.Helper()

	gw := testutil.NewFakeGateway()
	local := testutil.NewTestStore(t)
	return New(local, gw, &MemoryTokenStore{}, false, zerolog.Nop()), gw
}

func register(t *testing.T, s *Store, email string) model.OpResult {
	t.Helper()

	res := s.Register(context.Background(), model.RegisterDraft{
		Name:         "Arta",
		Email:        email,
		Password:     "sekret1",
		Neighborhood: "njesia5",
	})
	require.True(t, res.Success, "registration should succeed: %s", res.Message)
	return res
}

func TestRegisterAndLoginFallback(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")

	res := s.Login(ctx, "arta@example.com", "sekret1")
	require.True(t, res.Success)

	cur := s.Current(ctx)
	require.NotNil(t, cur)
	assert.Equal(t, "arta@example.com", cur.Email)
	assert.Empty(t, cur.PasswordHash, "session must never expose the hash")
	assert.True(t, cur.Prefs.Push, "registration enables every channel")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	s, _ := newFallbackStore(t)

	register(t, s, "arta@example.com")

	res := s.Register(context.Background(), model.RegisterDraft{
		Name:     "Tjetra",
		Email:    "arta@example.com",
		Password: "tjeter1",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "email already registered", res.Message)
}

func TestRegisterValidatesDraft(t *testing.T) {
	s, _ := newFallbackStore(t)

	res := s.Register(context.Background(), model.RegisterDraft{
		Name:     "Arta",
		Email:    "not-an-email",
		Password: "sekret1",
	})
	assert.False(t, res.Success)

	res = s.Register(context.Background(), model.RegisterDraft{
		Name:     "Arta",
		Email:    "arta@example.com",
		Password: "short",
	})
	assert.False(t, res.Success)
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")

	res := s.Login(ctx, "arta@example.com", "gabim")
	assert.False(t, res.Success)
	assert.Nil(t, s.Current(ctx))

	res = s.Login(ctx, "nuk@ekziston.com", "sekret1")
	assert.False(t, res.Success)
}

func TestLogoutKeepsRegistry(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")
	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	require.True(t, s.Logout(ctx).Success)
	assert.Nil(t, s.Current(ctx))

	// The registry record survives a logout.
	assert.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)
}

func TestChangePassword(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")
	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	res := s.ChangePassword(ctx, "gabim", "irinovel")
	assert.False(t, res.Success)
	assert.Equal(t, "current password is incorrect", res.Message)

	res = s.ChangePassword(ctx, "sekret1", "irinovel")
	require.True(t, res.Success)

	require.True(t, s.Logout(ctx).Success)
	assert.False(t, s.Login(ctx, "arta@example.com", "sekret1").Success)
	assert.True(t, s.Login(ctx, "arta@example.com", "irinovel").Success)
}

func TestOperationsRequireSession(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	res := s.UpdateProfile(ctx, model.ProfileUpdate{Name: "Arta"})
	assert.False(t, res.Success)
	assert.Equal(t, "no active session", res.Message)

	res = s.ChangePassword(ctx, "a", "bcdefg")
	assert.False(t, res.Success)

	res = s.UpdateNotificationPreferences(ctx, model.NotificationPrefs{})
	assert.False(t, res.Success)

	res = s.DeleteAccount(ctx)
	assert.False(t, res.Success)
}

func TestUpdateProfileMirrorsSession(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")
	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	res := s.UpdateProfile(ctx, model.ProfileUpdate{Name: "Arta B", Neighborhood: "njesia9"})
	require.True(t, res.Success)

	cur := s.Current(ctx)
	require.NotNil(t, cur)
	assert.Equal(t, "Arta B", cur.Name)
	assert.Equal(t, "njesia9", cur.Neighborhood)
}

func TestUpdateNotificationPreferences(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")
	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	prefs := model.DefaultNotificationPrefs()
	prefs.Push = false
	prefs.Email = false

	require.True(t, s.UpdateNotificationPreferences(ctx, prefs).Success)

	cur := s.Current(ctx)
	require.NotNil(t, cur)
	assert.False(t, cur.Prefs.Push)
	assert.False(t, cur.Prefs.Email)
	assert.True(t, cur.Prefs.Status)
}

func TestDeleteAccountEndsSessionAndRemovesUser(t *testing.T) {
	s, _ := newFallbackStore(t)
	ctx := context.Background()

	register(t, s, "arta@example.com")
	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	require.True(t, s.DeleteAccount(ctx).Success)
	assert.Nil(t, s.Current(ctx))
	assert.False(t, s.Login(ctx, "arta@example.com", "sekret1").Success)
}

func TestRemoteLoginStoresToken(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Users["arta@example.com"] = model.User{
		ID:           "u1",
		Email:        "arta@example.com",
		PasswordHash: "sekret1", // the fake compares plaintext
	}

	local := testutil.NewTestStore(t)
	tokens := &MemoryTokenStore{}
	s := New(local, gw, tokens, true, zerolog.Nop())
	ctx := context.Background()

	res := s.Login(ctx, "arta@example.com", "sekret1")
	require.True(t, res.Success)

	token, err := tokens.Get()
	require.NoError(t, err)
	assert.Equal(t, "fake-token", token)
	assert.Equal(t, "fake-token", gw.Token, "token must be installed on the gateway client")

	cur := s.Current(ctx)
	require.NotNil(t, cur)
	assert.Equal(t, "u1", cur.ID)
}

func TestRemoteLoginFailure(t *testing.T) {
	gw := testutil.NewFakeGateway()
	local := testutil.NewTestStore(t)
	s := New(local, gw, &MemoryTokenStore{}, true, zerolog.Nop())

	res := s.Login(context.Background(), "arta@example.com", "gabim")
	assert.False(t, res.Success)
	assert.Equal(t, "invalid email or password", res.Message)
}

func TestRemoteChangePasswordDistinguishesFailures(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Users["arta@example.com"] = model.User{
		ID:           "u1",
		Email:        "arta@example.com",
		PasswordHash: "sekret1",
	}

	local := testutil.NewTestStore(t)
	s := New(local, gw, &MemoryTokenStore{}, true, zerolog.Nop())
	ctx := context.Background()

	require.True(t, s.Login(ctx, "arta@example.com", "sekret1").Success)

	// Unreachable gateway must not read as a credential error.
	gw.SetDown(true)
	res := s.ChangePassword(ctx, "sekret1", "irinovel")
	assert.False(t, res.Success)
	assert.Equal(t, "could not change password", res.Message)

	// A gateway refusal does.
	gw.SetDown(false)
	gw.RejectPassword = true
	res = s.ChangePassword(ctx, "gabim", "irinovel")
	assert.False(t, res.Success)
	assert.Equal(t, "current password is incorrect", res.Message)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestTokenInfo(t *testing.T) {
	gw := testutil.NewFakeGateway()
	local := testutil.NewTestStore(t)
	tokens := &MemoryTokenStore{}
	s := New(local, gw, tokens, true, zerolog.Nop())

	_, err := s.TokenInfo()
	require.Error(t, err, "no token stored yet")

	exp := time.Now().Add(-time.Hour)
	require.NoError(t, tokens.Set(signedToken(t, exp)))

	info, err := s.TokenInfo()
	require.NoError(t, err)
	assert.Equal(t, "u1", info.Subject)
	assert.True(t, info.Expired)
	assert.WithinDuration(t, exp, info.ExpiresAt, time.Second)

	require.NoError(t, tokens.Set(signedToken(t, time.Now().Add(time.Hour))))

	info, err = s.TokenInfo()
	require.NoError(t, err)
	assert.False(t, info.Expired)
}

func TestSessionSurvivesRestart(t *testing.T) {
	gw := testutil.NewFakeGateway()
	local := testutil.NewTestStore(t)
	ctx := context.Background()

	first := New(local, gw, &MemoryTokenStore{}, false, zerolog.Nop())
	require.True(t, first.Register(ctx, model.RegisterDraft{
		Name: "Arta", Email: "arta@example.com", Password: "sekret1",
	}).Success)
	require.True(t, first.Login(ctx, "arta@example.com", "sekret1").Success)

	// A new store instance over the same local storage picks up the
	// persisted session record.
	second := New(local, gw, &MemoryTokenStore{}, false, zerolog.Nop())
	cur := second.Current(ctx)
	require.NotNil(t, cur)
	assert.Equal(t, "arta@example.com", cur.Email)
}
