package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"

	_ "modernc.org/sqlite" // SQLite driver
)

// Repository implements imagecatalog.MetadataStore using SQLite. Timestamps
// are stored as RFC 3339 text.
type Repository struct {
	db *sql.DB
}

// Open connects to the database at dsn and runs Migrate.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the records table and its owner index if they don't exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS image_records (
			id TEXT PRIMARY KEY,
			user_name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			image_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_on_date TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_image_records_owner_category
		ON image_records (user_name, category);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Upsert inserts the record or replaces the row with the same id. The
// rowid survives the update, which keeps query order stable.
func (r *Repository) Upsert(ctx context.Context, record *imagecatalog.ImageRecord) (*imagecatalog.ImageRecord, error) {
	if record == nil || record.ID == "" {
		return nil, errors.New("record id is required")
	}

	const query = `
		INSERT INTO image_records (id, user_name, category, image_name, description, created_on_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_name = excluded.user_name,
			category = excluded.category,
			image_name = excluded.image_name,
			description = excluded.description,
			created_on_date = excluded.created_on_date`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.UserName, record.Category,
		record.ImageName, record.Description, formatTime(record.CreatedOnDate))
	if err != nil {
		return nil, fmt.Errorf("upsert image record: %w", err)
	}

	stored := record.Clone()
	stored.ImageBytes = nil
	return stored, nil
}

func (r *Repository) QueryByOwner(ctx context.Context, owner string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "WHERE user_name = ?", owner)
}

func (r *Repository) QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "WHERE user_name = ? AND category = ?", owner, category)
}

func (r *Repository) QueryAll(ctx context.Context) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "")
}

func (r *Repository) query(ctx context.Context, where string, args ...any) ([]*imagecatalog.ImageRecord, error) {
	query := `
		SELECT id, user_name, category, image_name, description, created_on_date
		FROM image_records ` + where + `
		ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query image records: %w", err)
	}
	defer rows.Close()

	var records []*imagecatalog.ImageRecord
	for rows.Next() {
		var rec imagecatalog.ImageRecord
		var createdOn sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserName, &rec.Category,
			&rec.ImageName, &rec.Description, &createdOn); err != nil {
			return nil, fmt.Errorf("scan image record: %w", err)
		}
		if rec.CreatedOnDate, err = parseTime(createdOn); err != nil {
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image records: %w", err)
	}
	return records, nil
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse created_on_date: %w", err)
	}
	return &t, nil
}
