package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/qytetaret/synckit/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. The parent
// directory is created if missing. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, log: log}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const reportColumns = `id, title, description, category, subcategory, report_type,
	address, neighborhood, lat, lng, severity, status,
	comments, status_history, created_at, last_updated, user_id`

const insertReport = `
	INSERT OR REPLACE INTO reports (
		id, title, description, category, subcategory, report_type,
		address, neighborhood, lat, lng, severity, status,
		comments, status_history, created_at, last_updated, user_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ReplaceReports swaps the entire cached report collection.
func (s *SQLiteStore) ReplaceReports(ctx context.Context, reports []model.Report) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reports"); err != nil {
		return fmt.Errorf("clearing reports: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, insertReport)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range reports {
		if err := execInsertReport(ctx, stmt, r); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpsertReport inserts or replaces a single report.
func (s *SQLiteStore) UpsertReport(ctx context.Context, r model.Report) error {
	stmt, err := s.db.PreparexContext(ctx, insertReport)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	return execInsertReport(ctx, stmt, r)
}

func execInsertReport(ctx context.Context, stmt *sqlx.Stmt, r model.Report) error {
	comments, err := json.Marshal(r.Comments)
	if err != nil {
		return fmt.Errorf("marshaling comments for report %s: %w", r.ID, err)
	}
	history, err := json.Marshal(r.StatusHistory)
	if err != nil {
		return fmt.Errorf("marshaling status history for report %s: %w", r.ID, err)
	}

	var lastUpdated interface{}
	if !r.LastUpdated.IsZero() {
		lastUpdated = r.LastUpdated.UTC()
	}

	_, err = stmt.ExecContext(ctx,
		r.ID, r.Title, r.Description, r.Category, r.Subcategory, r.Type,
		r.Address, r.Neighborhood, r.Lat, r.Lng, r.Severity, r.Status,
		string(comments), string(history), r.CreatedAt.UTC(), lastUpdated, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("upserting report %s: %w", r.ID, err)
	}
	return nil
}

// GetReports retrieves reports matching the provided filter.
func (s *SQLiteStore) GetReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	var conditions []string
	var args []interface{}

	if filter.Category != nil {
		conditions = append(conditions, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.Subcategory != nil {
		conditions = append(conditions, "subcategory = ?")
		args = append(args, *filter.Subcategory)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Neighborhood != nil {
		conditions = append(conditions, "neighborhood = ?")
		args = append(args, *filter.Neighborhood)
	}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT " + reportColumns + " FROM reports"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		r, err := s.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}

	return reports, rows.Err()
}

// GetReportByID retrieves a single report, or nil if it does not exist.
func (s *SQLiteStore) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	r, err := s.scanReport(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CountReports returns the number of locally cached reports.
func (s *SQLiteStore) CountReports(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM reports"); err != nil {
		return 0, fmt.Errorf("counting reports: %w", err)
	}
	return count, nil
}

// scanReport scans a report row. Malformed JSON in the comments or
// status_history columns degrades to empty with a warning rather than
// failing the read.
func (s *SQLiteStore) scanReport(rows *sqlx.Rows) (model.Report, error) {
	var (
		r           model.Report
		comments    string
		history     string
		createdAt   time.Time
		lastUpdated sql.NullTime
	)

	err := rows.Scan(
		&r.ID, &r.Title, &r.Description, &r.Category, &r.Subcategory, &r.Type,
		&r.Address, &r.Neighborhood, &r.Lat, &r.Lng, &r.Severity, &r.Status,
		&comments, &history, &createdAt, &lastUpdated, &r.UserID,
	)
	if err != nil {
		return model.Report{}, fmt.Errorf("scanning report row: %w", err)
	}

	r.CreatedAt = createdAt
	if lastUpdated.Valid {
		r.LastUpdated = lastUpdated.Time
	}

	if comments != "" {
		if err := json.Unmarshal([]byte(comments), &r.Comments); err != nil {
			s.log.Warn().Str("report_id", r.ID).Err(err).
				Msg("corrupted comments column, treating as empty")
			r.Comments = nil
		}
	}
	if history != "" {
		if err := json.Unmarshal([]byte(history), &r.StatusHistory); err != nil {
			s.log.Warn().Str("report_id", r.ID).Err(err).
				Msg("corrupted status history column, treating as empty")
			r.StatusHistory = nil
		}
	}

	return r, nil
}

// SaveNotifications replaces the stored notification list for a user,
// keeping at most max entries ordered by creation time descending.
func (s *SQLiteStore) SaveNotifications(ctx context.Context, userID string, list []model.Notification, max int) error {
	kept := make([]model.Notification, len(list))
	copy(kept, list)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM notifications WHERE user_id = ?", userID,
	); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, report_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range kept {
		_, err := stmt.ExecContext(ctx,
			n.ID, userID, string(n.Type), n.Title, n.Message,
			n.ReportID, boolToInt(n.Read), n.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// GetNotifications retrieves the stored notification list for a user,
// newest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, user_id, type, title, message, report_id, read, created_at "+
			"FROM notifications WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var list []model.Notification
	for rows.Next() {
		var (
			n         model.Notification
			kind      string
			readInt   int
			createdAt time.Time
		)
		err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message,
			&n.ReportID, &readInt, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Type = model.NotificationType(kind)
		n.Read = readInt != 0
		n.CreatedAt = createdAt
		list = append(list, n)
	}

	return list, rows.Err()
}

// CreateUser inserts a new registry record. A duplicate email fails at
// the unique constraint.
func (s *SQLiteStore) CreateUser(ctx context.Context, u model.User) error {
	prefs, err := json.Marshal(u.Prefs)
	if err != nil {
		return fmt.Errorf("marshaling prefs for user %s: %w", u.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, neighborhood, prefs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Neighborhood,
		string(prefs), u.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating user %s: %w", u.ID, err)
	}
	return nil
}

// GetUserByEmail retrieves a registry record by email, or nil.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password_hash, neighborhood, prefs, created_at FROM users WHERE email = ?", email)
}

// GetUserByID retrieves a registry record by ID, or nil.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password_hash, neighborhood, prefs, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var (
		u         model.User
		prefs     string
		createdAt time.Time
	)

	row := s.db.QueryRowxContext(ctx, query, arg)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash,
		&u.Neighborhood, &prefs, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user row: %w", err)
	}

	u.CreatedAt = createdAt
	if prefs != "" {
		if err := json.Unmarshal([]byte(prefs), &u.Prefs); err != nil {
			s.log.Warn().Str("user_id", u.ID).Err(err).
				Msg("corrupted prefs column, using defaults")
			u.Prefs = model.DefaultNotificationPrefs()
		}
	}

	return &u, nil
}

// UpdateUser replaces a registry record by ID.
func (s *SQLiteStore) UpdateUser(ctx context.Context, u model.User) error {
	prefs, err := json.Marshal(u.Prefs)
	if err != nil {
		return fmt.Errorf("marshaling prefs for user %s: %w", u.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, password_hash = ?, neighborhood = ?, prefs = ?
		WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.Neighborhood, string(prefs), u.ID,
	)
	if err != nil {
		return fmt.Errorf("updating user %s: %w", u.ID, err)
	}
	return nil
}

// DeleteUser removes a registry record by ID.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	return nil
}

// SetSession persists the single current-session record. The credential
// hash is stripped before writing.
func (s *SQLiteStore) SetSession(ctx context.Context, u model.User) error {
	data, err := json.Marshal(u.Sanitized())
	if err != nil {
		return fmt.Errorf("marshaling session record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO session (id, user, updated_at) VALUES (1, ?, ?)`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// GetSession retrieves the current-session record, or nil when no
// session is active. A corrupted record degrades to nil.
func (s *SQLiteStore) GetSession(ctx context.Context) (*model.User, error) {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT user FROM session WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var u model.User
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		s.log.Warn().Err(err).Msg("corrupted session record, treating as logged out")
		return nil, nil
	}
	return &u, nil
}

// ClearSession removes the current-session record.
func (s *SQLiteStore) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
