package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/HillPhelmuth/WhiteBoard/pkg/imagecatalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured
const DefaultTable = "image_records"

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements imagecatalog.MetadataStore using PostgreSQL
type Repository struct {
	db    DBTX
	table string
}

// New creates a new PostgreSQL repository. An empty table means DefaultTable.
func New(db DBTX, table string) *Repository {
	if table == "" {
		table = DefaultTable
	}
	return &Repository{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool, DefaultTable)
}

// Migrate creates the records table and its owner index if they don't exist.
func Migrate(ctx context.Context, db DBTX, table string) error {
	if table == "" {
		table = DefaultTable
	}
	quotedTable := pgx.Identifier{table}.Sanitize()
	ownerIndex := pgx.Identifier{fmt.Sprintf("idx_%s_owner_category", table)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			image_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_on_date TIMESTAMPTZ,
			inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (user_name, category);
	`, quotedTable, ownerIndex, quotedTable)

	if _, err := db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create image records table: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Upsert inserts the record or replaces the row with the same id. The
// insertion time of an existing row is kept so queries stay in
// first-insertion order.
func (r *Repository) Upsert(ctx context.Context, record *imagecatalog.ImageRecord) (*imagecatalog.ImageRecord, error) {
	if record == nil || record.ID == "" {
		return nil, errors.New("record id is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_name, category, image_name, description, created_on_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_name = EXCLUDED.user_name,
			category = EXCLUDED.category,
			image_name = EXCLUDED.image_name,
			description = EXCLUDED.description,
			created_on_date = EXCLUDED.created_on_date`, r.table)

	_, err := r.db.Exec(ctx, query,
		record.ID, record.UserName, record.Category,
		record.ImageName, record.Description, record.CreatedOnDate)
	if err != nil {
		return nil, r.handlePostgresError("upsert image record", err)
	}

	stored := record.Clone()
	stored.ImageBytes = nil
	return stored, nil
}

func (r *Repository) QueryByOwner(ctx context.Context, owner string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "query by owner", "WHERE user_name = $1", owner)
}

func (r *Repository) QueryByOwnerAndCategory(ctx context.Context, owner, category string) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "query by owner and category", "WHERE user_name = $1 AND category = $2", owner, category)
}

func (r *Repository) QueryAll(ctx context.Context) ([]*imagecatalog.ImageRecord, error) {
	return r.query(ctx, "query all", "")
}

func (r *Repository) query(ctx context.Context, operation, where string, args ...interface{}) ([]*imagecatalog.ImageRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, user_name, category, image_name, description, created_on_date
		FROM %s %s
		ORDER BY inserted_at, id`, r.table, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	defer rows.Close()

	var records []*imagecatalog.ImageRecord
	for rows.Next() {
		var rec imagecatalog.ImageRecord
		if err := rows.Scan(&rec.ID, &rec.UserName, &rec.Category,
			&rec.ImageName, &rec.Description, &rec.CreatedOnDate); err != nil {
			return nil, r.handlePostgresError(operation, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError(operation, err)
	}
	return records, nil
}
