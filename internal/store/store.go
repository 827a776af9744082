package store

import (
	"context"

	"github.com/qytetaret/synckit/internal/model"
)

// Store defines the durable local persistence interface: the cached
// report collection, the bounded notification list, the fallback user
// registry, and the current-session record.
//
// Not-found lookups return nil rather than an error; errors are
// reserved for storage-level failures.
type Store interface {
	// === Reports ===

	// ReplaceReports swaps the entire cached collection for the given one.
	ReplaceReports(ctx context.Context, reports []model.Report) error

	// UpsertReport inserts or replaces a single report by ID.
	UpsertReport(ctx context.Context, r model.Report) error

	GetReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error)
	GetReportByID(ctx context.Context, id string) (*model.Report, error)
	CountReports(ctx context.Context) (int, error)

	// === Notifications ===

	// SaveNotifications replaces the stored list for a user, keeping at
	// most max entries (the most recent by creation time).
	SaveNotifications(ctx context.Context, userID string, list []model.Notification, max int) error

	GetNotifications(ctx context.Context, userID string) ([]model.Notification, error)

	// === User registry (fallback mode) ===

	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
	DeleteUser(ctx context.Context, id string) error

	// === Current session ===

	// SetSession persists the single current-session record, replacing
	// any previous one. The stored record never contains a credential hash.
	SetSession(ctx context.Context, u model.User) error

	GetSession(ctx context.Context) (*model.User, error)
	ClearSession(ctx context.Context) error

	Close() error
}
