package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Report status values.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

// Report severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
	SeverityUrgent = "urgent"
)

// ValidStatus reports whether s is one of the known report statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Comment is a single discussion entry on a report.
type Comment struct {
	// ID is the unique identifier of the comment.
	ID string `json:"id"`

	// Text is the comment body.
	Text string `json:"text"`

	// Timestamp is when the comment was written.
	Timestamp time.Time `json:"timestamp"`

	// User identifies the author; AnonymousUserID when no session was active.
	User string `json:"user"`
}

// StatusChange records when a report entered a given status and the
// comment attached to that transition.
type StatusChange struct {
	// Date is when the transition happened.
	Date time.Time `json:"date"`

	// Comment is the optional note attached to the transition.
	Comment string `json:"comment,omitempty"`
}

// Report is a citizen-submitted municipal issue.
type Report struct {
	// ID is the unique identifier within a store.
	ID string `json:"id"`

	// Title is the short summary of the issue.
	Title string `json:"title"`

	// Description is the full issue text.
	Description string `json:"description"`

	// Category is the top-level issue category (e.g., "infrastructure").
	Category string `json:"category"`

	// Subcategory refines the category (e.g., "road-damage").
	Subcategory string `json:"subcategory"`

	// Type is a free-text issue type supplied by the reporter.
	Type string `json:"type,omitempty"`

	// Address is the street address of the issue.
	Address string `json:"address"`

	// Neighborhood is the administrative unit identifier (e.g., "njesia5").
	Neighborhood string `json:"neighborhood"`

	// Lat and Lng locate the issue geographically.
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`

	// Severity is one of the Severity* constants.
	Severity string `json:"severity,omitempty"`

	// Status is one of the Status* constants.
	Status string `json:"status"`

	// Comments is the ordered discussion thread.
	Comments []Comment `json:"comments,omitempty"`

	// StatusHistory maps a status name to its most recent transition.
	// A repeated transition into the same status overwrites the prior entry.
	StatusHistory map[string]StatusChange `json:"statusHistory,omitempty"`

	// CreatedAt is when the report was submitted.
	CreatedAt time.Time `json:"createdAt"`

	// LastUpdated is when the status last changed; zero if never updated.
	LastUpdated time.Time `json:"lastUpdated,omitempty"`

	// UserID identifies the reporting user.
	UserID string `json:"userId,omitempty"`
}

// ReportFilter narrows report listings. Nil fields match everything.
type ReportFilter struct {
	Category     *string
	Subcategory  *string
	Status       *string
	Neighborhood *string
	UserID       *string
	Query        *string
	Limit        int
	Offset       int
}

// ReportDraft is the validated input shape for creating a report.
// Fields are checked at the store boundary before any remote or local write.
type ReportDraft struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Subcategory  string  `json:"subcategory"`
	Type         string  `json:"type"`
	Address      string  `json:"address" validate:"required"`
	Neighborhood string  `json:"neighborhood"`
	Lat          float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng          float64 `json:"lng" validate:"gte=-180,lte=180"`
	Severity     string  `json:"severity" validate:"omitempty,oneof=low medium high urgent"`
	Status       string  `json:"status" validate:"omitempty,oneof=pending in-progress resolved"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the draft against its field constraints.
func (d ReportDraft) Validate() error {
	return validate.Struct(d)
}
