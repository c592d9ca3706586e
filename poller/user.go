package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emergencyhub/request"

	"go.uber.org/zap"
)

var (
	// ErrTimedOut signals that the request was still pending when the poll
	// budget ran out. The caller surfaces this as "still pending".
	ErrTimedOut = errors.New("poller: request still pending after poll budget")
	// ErrTooManyFailures signals that consecutive poll attempts kept failing.
	ErrTooManyFailures = errors.New("poller: too many consecutive poll failures")
)

// StatusSource answers a user's status poll. *request.Service satisfies it.
type StatusSource interface {
	PollForUser(ctx context.Context, userID string) (request.PollResult, error)
}

// Dialer triggers the external phone-call side effect on acceptance.
type Dialer interface {
	Dial(phoneNumber string) error
}

const (
	defaultInitialDelay     = 8 * time.Second
	defaultUserInterval     = 4 * time.Second
	defaultMaxAttempts      = 45
	defaultFailureThreshold = 3
)

// UserPoller repeatedly queries the coordinator for resolution of a sent
// request. Unlike an open-ended loop, it is bounded: after maxAttempts polls
// still reporting pending it stops with ErrTimedOut.
type UserPoller struct {
	source           StatusSource
	dialer           Dialer
	logger           *zap.Logger
	initialDelay     time.Duration
	interval         time.Duration
	maxAttempts      int
	failureThreshold int
}

// NewUserPoller creates a poller with production timing defaults.
func NewUserPoller(source StatusSource, logger *zap.Logger) *UserPoller {
	return &UserPoller{
		source:           source,
		logger:           logger,
		initialDelay:     defaultInitialDelay,
		interval:         defaultUserInterval,
		maxAttempts:      defaultMaxAttempts,
		failureThreshold: defaultFailureThreshold,
	}
}

// WithTiming overrides the initial delay and poll interval.
func (p *UserPoller) WithTiming(initialDelay, interval time.Duration) *UserPoller {
	p.initialDelay = initialDelay
	p.interval = interval
	return p
}

// WithMaxAttempts bounds the number of polls before giving up.
func (p *UserPoller) WithMaxAttempts(n int) *UserPoller {
	p.maxAttempts = n
	return p
}

// WithFailureThreshold sets how many consecutive poll failures are tolerated
// before the loop escalates.
func (p *UserPoller) WithFailureThreshold(n int) *UserPoller {
	p.failureThreshold = n
	return p
}

// WithDialer installs the auto-dial side effect invoked on acceptance.
func (p *UserPoller) WithDialer(d Dialer) *UserPoller {
	p.dialer = d
	return p
}

// Await polls until the request reaches a terminal outcome, the poll budget is
// exhausted, or ctx is cancelled. Individual poll failures are logged and
// skipped; only failureThreshold consecutive ones abort the loop. On
// acceptance the dialer is invoked with the provider's phone number.
func (p *UserPoller) Await(ctx context.Context, sess Session) (request.PollResult, error) {
	if err := sleep(ctx, p.initialDelay); err != nil {
		return request.PollResult{}, err
	}

	failures := 0
	for attempt := 1; ; attempt++ {
		res, err := p.source.PollForUser(ctx, sess.ActorID)
		switch {
		case err != nil:
			failures++
			p.logger.Warn("status poll failed",
				zap.String("user_id", sess.ActorID),
				zap.Int("attempt", attempt),
				zap.Int("consecutive_failures", failures),
				zap.Error(err))
			if failures >= p.failureThreshold {
				return request.PollResult{}, fmt.Errorf("%w: %v", ErrTooManyFailures, err)
			}

		case res.Outcome == request.PollPending:
			failures = 0

		default:
			// Terminal outcome, or the explicit no-active-request answer
			// (e.g. a duplicate tab consumed the result first).
			if res.Outcome == request.PollAccepted && p.dialer != nil {
				if err := p.dialer.Dial(res.ProviderPhone); err != nil {
					p.logger.Warn("auto-dial failed",
						zap.String("phone", res.ProviderPhone),
						zap.Error(err))
				}
			}
			return res, nil
		}

		if attempt >= p.maxAttempts {
			return request.PollResult{Outcome: request.PollPending}, ErrTimedOut
		}
		if err := sleep(ctx, p.interval); err != nil {
			return request.PollResult{}, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
