// Package chaos injects connection-level faults during stress runs.
package chaos

import (
	"context"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Injector kills database backends out from under the request actors so the
// requester/resolver/poller loops exercise their reconnect and retry paths.
// The default cadence matches the provider poll interval, so kills land
// between a resolver's row pick and its commit.
type Injector struct {
	pool     *pgxpool.Pool
	interval time.Duration
	odds     int
	rng      *rand.Rand
}

// NewInjector builds an injector over the stress pool. The seed makes a run's
// fault schedule reproducible alongside the actor schedules.
func NewInjector(pool *pgxpool.Pool, seed int64) *Injector {
	return &Injector{
		pool:     pool,
		interval: 3 * time.Second,
		odds:     4,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Run terminates one backend roughly every interval*odds until the context or
// stop channel fires.
func (in *Injector) Run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(in.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if in.rng.Intn(in.odds) != 0 {
				continue
			}
			in.killOne(ctx)
		}
	}
}

// killOne picks a busy backend of the stress database, never its own
// connection. Skipping idle backends keeps the kills on actors that hold a
// transaction open rather than on parked pool connections.
func (in *Injector) killOne(ctx context.Context) {
	_, _ = in.pool.Exec(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = current_database()
		  AND pid <> pg_backend_pid()
		  AND state <> 'idle'
		ORDER BY random()
		LIMIT 1`)
}
