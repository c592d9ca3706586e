// Package oracles holds SQL invariant checks the stress harness evaluates
// while the actors run. Each query returns rows only when its invariant is
// violated.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_one_pending_per_pair",
			SQL: `SELECT user_id, service_provider_id, COUNT(*) FROM requests
                  WHERE status = 'pending'
                  GROUP BY user_id, service_provider_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_no_orphan_requests",
			SQL: `SELECT r.id FROM requests r
                  LEFT JOIN users u ON u.id = r.user_id
                  LEFT JOIN service_providers p ON p.id = r.service_provider_id
                  WHERE u.id IS NULL OR p.id IS NULL`,
		},
		{
			Name: "O3_valid_status_domain",
			SQL: `SELECT id, status FROM requests
                  WHERE status NOT IN ('pending', 'accepted', 'rejected')`,
		},
	}
}

// Run evaluates every oracle and returns the name plus first offending row of
// the first one that fails, or empty strings when all hold.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return "", "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, _ := rows.Values()
			rows.Close()
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return "", "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
	}
	return "", "", nil
}
