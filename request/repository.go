package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that the request does not exist.
	ErrNotFound = errors.New("request: not found")
	// ErrAlreadyResolved signals a transition attempt on a non-pending request.
	ErrAlreadyResolved = errors.New("request: already resolved")
	// ErrDuplicatePending signals a second live pending request for the same
	// (user, provider) pair.
	ErrDuplicatePending = errors.New("request: pending request already exists for this provider")
)

// Repository handles data access for help requests. Single-row reads and
// writes are atomic on their own; the poll path composes a read and a delete
// inside a caller-owned transaction.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Request, error)
	ListByProvider(ctx context.Context, providerID string) ([]Request, error)
	Resolve(ctx context.Context, requestID string, status Status) (Request, error)
	OldestForUserForUpdate(ctx context.Context, tx pgx.Tx, userID string) (Request, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, requestID string) error
}

// CreateParams contains write parameters for creating requests. An empty ID
// lets the store assign one.
type CreateParams struct {
	ID                string
	UserID            string
	ServiceProviderID string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed request repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new pending request.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Request, error) {
	const insertSQL = `
		INSERT INTO requests (id, user_id, service_provider_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3)
		RETURNING id, user_id, service_provider_id, status::text, created_at
	`

	req, err := scanRequest(r.pool.QueryRow(ctx, insertSQL, params.ID, params.UserID, params.ServiceProviderID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Request{}, ErrDuplicatePending
		}
		return Request{}, fmt.Errorf("request: create: %w", err)
	}

	return req, nil
}

// ListByProvider returns all requests addressed to the provider, newest first.
func (r *PGRepository) ListByProvider(ctx context.Context, providerID string) ([]Request, error) {
	const selectSQL = `
		SELECT id, user_id, service_provider_id, status::text, created_at
		FROM requests
		WHERE service_provider_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, selectSQL, providerID)
	if err != nil {
		return nil, fmt.Errorf("request: list by provider: %w", err)
	}
	defer rows.Close()

	list := make([]Request, 0, 8)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("request: scan: %w", err)
		}
		list = append(list, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request: iterate: %w", err)
	}

	return list, nil
}

// Resolve transitions a request out of pending with a compare-and-swap: the
// update applies only while the row is still pending. A miss is disambiguated
// into ErrNotFound or ErrAlreadyResolved.
func (r *PGRepository) Resolve(ctx context.Context, requestID string, status Status) (Request, error) {
	const updateSQL = `
		UPDATE requests
		SET status = $2::request_status
		WHERE id = $1 AND status = 'pending'
		RETURNING id, user_id, service_provider_id, status::text, created_at
	`

	req, err := scanRequest(r.pool.QueryRow(ctx, updateSQL, requestID, status))
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Request{}, fmt.Errorf("request: resolve: %w", err)
	}

	var current string
	err = r.pool.QueryRow(ctx, `SELECT status::text FROM requests WHERE id = $1`, requestID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("request: resolve status check: %w", err)
	}

	return Request{}, ErrAlreadyResolved
}

// OldestForUserForUpdate locks and returns the user's oldest request inside
// the given transaction. A row deleted by a concurrent poll between snapshot
// and lock is skipped, which surfaces as ErrNotFound.
func (r *PGRepository) OldestForUserForUpdate(ctx context.Context, tx pgx.Tx, userID string) (Request, error) {
	const selectSQL = `
		SELECT id, user_id, service_provider_id, status::text, created_at
		FROM requests
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`

	req, err := scanRequest(tx.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("request: oldest for user: %w", err)
	}

	return req, nil
}

// DeleteTx removes a request inside the given transaction. Deleting an
// already-absent row is not an error.
func (r *PGRepository) DeleteTx(ctx context.Context, tx pgx.Tx, requestID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM requests WHERE id = $1`, requestID); err != nil {
		return fmt.Errorf("request: delete: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.ServiceProviderID,
		&req.Status,
		&req.CreatedAt,
	)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
