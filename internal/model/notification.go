package model

import "time"

// NotificationType identifies what kind of event a notification describes.
type NotificationType string

const (
	NotificationStatus  NotificationType = "status"
	NotificationComment NotificationType = "comment"
	NotificationNearby  NotificationType = "nearby"
)

// Notification is an alert surfaced to the user about activity on a
// report or in their neighborhood. Identifier uniqueness is the sole
// key used when diffing a freshly fetched list against the known one.
type Notification struct {
	// ID is the unique identifier of the notification.
	ID string `json:"id"`

	// UserID identifies the owning user.
	UserID string `json:"userId"`

	// Type is one of the Notification* constants.
	Type NotificationType `json:"type"`

	// Title is the short headline.
	Title string `json:"title"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// ReportID links to the related report, if any.
	ReportID string `json:"reportId,omitempty"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"createdAt"`
}
