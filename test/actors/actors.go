// Package actors holds the concurrent workloads the stress harness runs
// against a live database: users firing requests, providers resolving them,
// and user-side polls consuming the answers.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Requester keeps creating pending requests for the same (user, provider)
// pair. Under contention most inserts collide with the partial unique index,
// which is the expected outcome.
func Requester(ctx context.Context, pool *pgxpool.Pool, userID, providerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO requests (user_id, service_provider_id, status)
                                   VALUES ($1, $2, 'pending')`, userID, providerID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				// expected under contention
			} else if !errors.Is(err, context.Canceled) {
				return fmt.Errorf("requester insert: %w", err)
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Resolver flips pending requests for the provider to a terminal status. The
// CAS condition on status keeps concurrent resolvers from overwriting each
// other's decision.
func Resolver(ctx context.Context, pool *pgxpool.Pool, providerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		var reqID string
		err = tx.QueryRow(ctx, `SELECT id FROM requests
                                WHERE service_provider_id = $1 AND status = 'pending'
                                ORDER BY created_at ASC LIMIT 1 FOR UPDATE`, providerID).Scan(&reqID)
		if err == nil {
			status := "accepted"
			if rand.Intn(2) == 0 {
				status = "rejected"
			}
			_, err = tx.Exec(ctx, `UPDATE requests SET status = $2::request_status
                                   WHERE id = $1 AND status = 'pending'`, reqID, status)
			if err == nil {
				err = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, context.Canceled) && !isClosedTx(err) {
			return fmt.Errorf("resolver: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Poller consumes the user's oldest request the way the status poll does:
// read it under a row lock, delete it when terminal, leave it when pending.
func Poller(ctx context.Context, pool *pgxpool.Pool, userID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		var reqID, status string
		err = tx.QueryRow(ctx, `SELECT id, status FROM requests
                                WHERE user_id = $1
                                ORDER BY created_at ASC LIMIT 1 FOR UPDATE`, userID).Scan(&reqID, &status)
		if err == nil && (status == "accepted" || status == "rejected") {
			_, err = tx.Exec(ctx, `DELETE FROM requests WHERE id = $1`, reqID)
			if err == nil {
				err = tx.Commit(ctx)
			}
		}
		_ = tx.Rollback(ctx)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) && !errors.Is(err, context.Canceled) && !isClosedTx(err) {
			return fmt.Errorf("poller: %w", err)
		}
		time.Sleep(time.Duration(15+rand.Intn(30)) * time.Millisecond)
	}
}

func isClosedTx(err error) bool {
	return errors.Is(err, pgx.ErrTxClosed) || errors.Is(err, pgx.ErrTxCommitRollback)
}
