package poller

import (
	"context"
	"fmt"
	"time"

	"emergencyhub/request"

	"go.uber.org/zap"
)

// QueueSource fetches a provider's request queue. *request.Service satisfies it.
type QueueSource interface {
	ListForProvider(ctx context.Context, providerID string) ([]request.Request, error)
}

// QueueHandler receives the new queue snapshot whenever it changes.
type QueueHandler func(requests []request.Request)

const defaultProviderInterval = 3 * time.Second

// ProviderPoller refreshes a provider's visible queue on a short interval.
// The handler fires only when the fetched queue differs from the previous
// snapshot, to avoid needless churn in the consumer.
type ProviderPoller struct {
	source           QueueSource
	logger           *zap.Logger
	interval         time.Duration
	failureThreshold int

	seeded bool
	last   []request.Request
}

// NewProviderPoller creates a poller with production timing defaults.
func NewProviderPoller(source QueueSource, logger *zap.Logger) *ProviderPoller {
	return &ProviderPoller{
		source:           source,
		logger:           logger,
		interval:         defaultProviderInterval,
		failureThreshold: defaultFailureThreshold,
	}
}

// WithInterval overrides the poll interval.
func (p *ProviderPoller) WithInterval(d time.Duration) *ProviderPoller {
	p.interval = d
	return p
}

// WithFailureThreshold sets how many consecutive fetch failures are tolerated.
func (p *ProviderPoller) WithFailureThreshold(n int) *ProviderPoller {
	p.failureThreshold = n
	return p
}

// Run polls until ctx is cancelled, invoking handler on every queue change
// (including the first fetch). Individual fetch failures are logged and
// skipped; failureThreshold consecutive ones abort the loop. The next
// successful fetch self-heals any optimistic local update that diverged.
func (p *ProviderPoller) Run(ctx context.Context, sess Session, handler QueueHandler) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	fetch := func() error {
		list, err := p.source.ListForProvider(ctx, sess.ActorID)
		if err != nil {
			failures++
			p.logger.Warn("queue poll failed",
				zap.String("provider_id", sess.ActorID),
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
			if failures >= p.failureThreshold {
				return fmt.Errorf("%w: %v", ErrTooManyFailures, err)
			}
			return nil
		}
		failures = 0
		if !p.seeded || !sameQueue(p.last, list) {
			p.seeded = true
			p.last = list
			handler(list)
		}
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fetch(); err != nil {
				return err
			}
		}
	}
}

// MarkResolved optimistically rewrites the status of one entry in a queue
// snapshot, so the provider UI reflects a decision without waiting for the
// next poll. The input slice is not modified.
func MarkResolved(snapshot []request.Request, requestID string, status request.Status) []request.Request {
	out := make([]request.Request, len(snapshot))
	copy(out, snapshot)
	for i := range out {
		if out[i].ID == requestID {
			out[i].Status = status
		}
	}
	return out
}

// sameQueue is a shallow content comparison: two snapshots are equal when they
// list the same requests in the same order with the same statuses.
func sameQueue(a, b []request.Request) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Status != b[i].Status {
			return false
		}
	}
	return true
}
