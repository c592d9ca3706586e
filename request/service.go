package request

import (
	"context"
	"errors"
	"fmt"

	"emergencyhub/auth"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInvalidDecision signals a decision outside accept/reject.
var ErrInvalidDecision = errors.New("request: invalid decision")

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IdentityReader is the slice of the auth repository the coordinator needs for
// existence checks. References are validated at creation time, not enforced by
// foreign keys.
type IdentityReader interface {
	GetUserByID(ctx context.Context, userID string) (auth.User, error)
	GetProviderByPhone(ctx context.Context, phoneNumber string) (auth.ServiceProvider, error)
	GetProviderByID(ctx context.Context, providerID string) (auth.ServiceProvider, error)
}

// Service is the request coordinator: it mediates creation, resolution and
// poll-driven cleanup of help requests. It holds no state between calls; all
// durable state lives in the store.
type Service struct {
	pool     TxBeginner
	repo     Repository
	identity IdentityReader
	idGen    func() string
}

// NewService creates the coordinator.
func NewService(pool TxBeginner, repo Repository, identity IdentityReader) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		identity: identity,
		idGen:    func() string { return uuid.NewString() },
	}
}

// WithIDGenerator overrides the request id source, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGen = gen
	return s
}

// Create validates that the requesting user exists and that a provider is
// registered under the given phone number, then stores a pending request. A
// failed lookup leaves no record behind.
func (s *Service) Create(ctx context.Context, userID, providerPhone string) (Request, error) {
	if userID == "" {
		return Request{}, fmt.Errorf("request: missing user id")
	}
	if providerPhone == "" {
		return Request{}, fmt.Errorf("request: missing provider phone")
	}

	user, err := s.identity.GetUserByID(ctx, userID)
	if err != nil {
		return Request{}, err
	}

	provider, err := s.identity.GetProviderByPhone(ctx, providerPhone)
	if err != nil {
		return Request{}, err
	}

	return s.repo.Create(ctx, CreateParams{
		ID:                s.idGen(),
		UserID:            user.ID,
		ServiceProviderID: provider.ID,
	})
}

// ListForProvider returns the provider's full queue, newest first.
func (s *Service) ListForProvider(ctx context.Context, providerID string) ([]Request, error) {
	if providerID == "" {
		return nil, fmt.Errorf("request: missing provider id")
	}
	return s.repo.ListByProvider(ctx, providerID)
}

// Resolve applies the provider's decision to a pending request. Only
// pending requests transition; anything else fails with ErrAlreadyResolved,
// and an absent request with ErrNotFound.
func (s *Service) Resolve(ctx context.Context, requestID string, decision Decision) (Request, error) {
	if requestID == "" {
		return Request{}, fmt.Errorf("request: missing request id")
	}

	var status Status
	switch decision {
	case DecisionAccept:
		status = StatusAccepted
	case DecisionReject:
		status = StatusRejected
	default:
		return Request{}, ErrInvalidDecision
	}

	return s.repo.Resolve(ctx, requestID, status)
}

// PollForUser answers a user's status poll. The oldest request is locked for
// the duration of the transaction; a terminal status is consumed (the row is
// deleted) exactly once across concurrent polls, because a competitor's lock
// attempt on the deleted row comes back empty.
func (s *Service) PollForUser(ctx context.Context, userID string) (PollResult, error) {
	if userID == "" {
		return PollResult{}, fmt.Errorf("request: missing user id")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PollResult{}, fmt.Errorf("request: begin poll tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.repo.OldestForUserForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return PollResult{Outcome: PollNone}, nil
		}
		return PollResult{}, err
	}

	if req.Status == StatusPending {
		return PollResult{Outcome: PollPending}, nil
	}

	if err := s.repo.DeleteTx(ctx, tx, req.ID); err != nil {
		return PollResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return PollResult{}, fmt.Errorf("request: commit poll tx: %w", err)
	}

	result := PollResult{Outcome: PollRejected}
	if req.Status == StatusAccepted {
		result.Outcome = PollAccepted
		// Best effort: the client dials this number on acceptance. A provider
		// deregistered in the meantime just yields an empty phone.
		if provider, err := s.identity.GetProviderByID(ctx, req.ServiceProviderID); err == nil {
			result.ProviderPhone = provider.PhoneNumber
		}
	}

	return result, nil
}
