package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-user-management/app/observability/metrics"
	"github.com/FACorreiaa/go-user-management/internal/types"
)

// Querier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresRepository)(nil)

// Repository is the persistence boundary for user records. Every write takes
// the acting identity explicitly; audit fields are stamped here, and deletes
// are soft: the row is retained with deleted_at/deleted_by set.
type Repository interface {
	// GetByID looks a record up by primary key. Soft-deleted rows are NOT
	// filtered out; callers that care must check IsDeleted themselves.
	GetByID(ctx context.Context, id int64) (*types.User, error)

	// GetByUsername returns the active (not soft-deleted) record.
	GetByUsername(ctx context.Context, username string) (*types.User, error)

	// GetByEmail returns the active (not soft-deleted) record.
	GetByEmail(ctx context.Context, email string) (*types.User, error)

	// GetAll returns every record, soft-deleted rows included.
	GetAll(ctx context.Context) ([]types.User, error)

	// Create inserts a record, stamping created/updated audit fields with
	// the given actor, and assigns the identifier.
	Create(ctx context.Context, u *types.User, actor string) (*types.User, error)

	// Update rewrites the mutable columns of a full active entity. It never
	// touches created_* fields or the password hash. Unknown or soft-deleted
	// ids return ErrNotFound; a tombstoned row is not mutable.
	Update(ctx context.Context, u *types.User, actor string) (*types.User, error)

	// SoftDelete marks an active record deleted. Returns false when the id
	// is unknown or the record was already soft-deleted.
	SoftDelete(ctx context.Context, id int64, actor string) (bool, error)

	// Count returns the total number of rows, soft-deleted included.
	Count(ctx context.Context) (int64, error)
}

const userColumns = `id, username, email, password_hash, role, firstname, lastname, phone,
       created_at, created_by, updated_at, updated_by, deleted_at, deleted_by`

type PostgresRepository struct {
	logger  *slog.Logger
	db      Querier
	metrics *metrics.AppMetrics
}

// NewPostgresRepository creates the pgx-backed repository. The metrics
// instance may be nil.
func NewPostgresRepository(db Querier, m *metrics.AppMetrics, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func (r *PostgresRepository) observe(ctx context.Context, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1)
	}
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Firstname, &u.Lastname, &u.Phone,
		&u.CreatedAt, &u.CreatedBy, &u.UpdatedAt, &u.UpdatedBy, &u.DeletedAt, &u.DeletedBy)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// mapPgError converts unique-constraint violations into the shared conflict
// sentinel; everything else passes through unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", types.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id %d: %w", id, err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 AND deleted_at IS NULL`, username))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get user by username %q: %w", username, err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	start := time.Now()
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email))
	r.observe(ctx, start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email %q: %w", email, err)
	}
	return u, nil
}

func (r *PostgresRepository) GetAll(ctx context.Context) ([]types.User, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *types.User, actor string) (*types.User, error) {
	if actor == "" {
		actor = types.SystemActor
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.CreatedBy = actor
	u.UpdatedAt = now
	u.UpdatedBy = actor

	start := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role, firstname, lastname, phone,
		                    created_at, created_by, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		u.Username, u.Email, u.PasswordHash, u.Role, u.Firstname, u.Lastname, u.Phone,
		u.CreatedAt, u.CreatedBy, u.UpdatedAt, u.UpdatedBy).Scan(&u.ID)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("insert user %q: %w", u.Username, mapPgError(err))
	}

	r.logger.InfoContext(ctx, "User created",
		slog.Int64("user_id", u.ID), slog.String("actor", actor))
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *types.User, actor string) (*types.User, error) {
	if actor == "" {
		actor = types.SystemActor
	}
	u.UpdatedAt = time.Now().UTC()
	u.UpdatedBy = actor

	start := time.Now()
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET username = $1, email = $2, role = $3, firstname = $4, lastname = $5, phone = $6,
		     updated_at = $7, updated_by = $8
		 WHERE id = $9 AND deleted_at IS NULL`,
		u.Username, u.Email, u.Role, u.Firstname, u.Lastname, u.Phone,
		u.UpdatedAt, u.UpdatedBy, u.ID)
	r.observe(ctx, start, err)
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", u.ID, mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return nil, types.ErrNotFound
	}

	r.logger.InfoContext(ctx, "User updated",
		slog.Int64("user_id", u.ID), slog.String("actor", actor))
	return u, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64, actor string) (bool, error) {
	if actor == "" {
		actor = types.SystemActor
	}
	now := time.Now().UTC()

	start := time.Now()
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET deleted_at = $1, deleted_by = $2, updated_at = $1, updated_by = $2
		 WHERE id = $3 AND deleted_at IS NULL`,
		now, actor, id)
	r.observe(ctx, start, err)
	if err != nil {
		return false, fmt.Errorf("soft delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	r.logger.InfoContext(ctx, "User soft-deleted",
		slog.Int64("user_id", id), slog.String("actor", actor))
	return true, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	r.observe(ctx, start, err)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
