package model

import "time"

// AnonymousUserID is the sentinel identity used to attribute local
// writes when no session is active.
const AnonymousUserID = "anonymous"

// NotificationPrefs holds the per-channel notification switches.
type NotificationPrefs struct {
	Status   bool `json:"status"`
	Comments bool `json:"comments"`
	Nearby   bool `json:"nearby"`
	Email    bool `json:"email"`
	Push     bool `json:"push"`
}

// DefaultNotificationPrefs returns the registration default: every
// channel enabled.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{
		Status:   true,
		Comments: true,
		Nearby:   true,
		Email:    true,
		Push:     true,
	}
}

// User is a registered resident account. In fallback mode the full
// registry lives in the local store; in remote mode only the session
// mirror is held locally.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is unique within a registry.
	Email string `json:"email"`

	// PasswordHash is the stored credential hash. It is never
	// serialized and never part of a persisted session record.
	PasswordHash string `json:"-"`

	// Neighborhood is the user's administrative unit.
	Neighborhood string `json:"neighborhood"`

	// Prefs are the notification channel switches.
	Prefs NotificationPrefs `json:"prefs"`

	// CreatedAt is when the account was created.
	CreatedAt time.Time `json:"createdAt"`
}

// Sanitized returns a copy of the user with the credential hash removed,
// suitable for persisting as a session record.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// RegisterDraft is the validated input for account creation.
type RegisterDraft struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Neighborhood string `json:"neighborhood"`
}

// Validate checks the draft against its field constraints.
func (d RegisterDraft) Validate() error {
	return validate.Struct(d)
}

// ProfileUpdate carries the mutable profile fields.
type ProfileUpdate struct {
	Name         string `json:"name" validate:"required"`
	Neighborhood string `json:"neighborhood"`
}

// Validate checks the update against its field constraints.
func (p ProfileUpdate) Validate() error {
	return validate.Struct(p)
}
