package request

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"emergencyhub/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestService_CreatePending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.Create(ctx, "U1", "+15550001")
	if err != nil {
		t.Fatalf("create: unexpected error: %v", err)
	}

	if req.Status != StatusPending {
		t.Fatalf("expected status pending, got %s", req.Status)
	}
	if req.UserID != "U1" || req.ServiceProviderID != "P1" {
		t.Fatalf("unexpected references: %+v", req)
	}
	if req.CreatedAt.IsZero() {
		t.Fatal("expected createdAt to be set")
	}
}

func TestService_CreateUnknownProvider(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "U1", "+19990000")
	if !errors.Is(err, auth.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if n := len(f.repo.requests); n != 0 {
		t.Fatalf("expected no record created, found %d", n)
	}
}

func TestService_CreateUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "ghost", "+15550001")
	if !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n := len(f.repo.requests); n != 0 {
		t.Fatalf("expected no record created, found %d", n)
	}
}

func TestService_CreateDuplicatePending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, "U1", "+15550001"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := f.svc.Create(ctx, "U1", "+15550001")
	if !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}
}

func TestService_AcceptThenPollConsumesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.Create(ctx, "U1", "+15550001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := f.svc.Resolve(ctx, req.ID, DecisionAccept)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", resolved.Status)
	}

	res, err := f.svc.PollForUser(ctx, "U1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Outcome != PollAccepted {
		t.Fatalf("expected accepted outcome, got %s", res.Outcome)
	}
	if res.ProviderPhone != "+15550001" {
		t.Fatalf("expected provider phone for auto-dial, got %q", res.ProviderPhone)
	}
	if !f.pool.tx.committed {
		t.Fatal("expected poll transaction to commit")
	}

	// The record is consumed; a second poll finds nothing.
	res, err = f.svc.PollForUser(ctx, "U1")
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if res.Outcome != PollNone {
		t.Fatalf("expected none after consumption, got %s", res.Outcome)
	}
}

func TestService_RejectThenPoll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.Create(ctx, "U1", "+15550001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, req.ID, DecisionReject); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	res, err := f.svc.PollForUser(ctx, "U1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Outcome != PollRejected {
		t.Fatalf("expected rejected outcome, got %s", res.Outcome)
	}
	if res.ProviderPhone != "" {
		t.Fatalf("expected no phone on rejection, got %q", res.ProviderPhone)
	}

	res, err = f.svc.PollForUser(ctx, "U1")
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if res.Outcome != PollNone {
		t.Fatalf("expected none, got %s", res.Outcome)
	}
}

func TestService_PollWhilePendingIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, "U1", "+15550001"); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		res, err := f.svc.PollForUser(ctx, "U1")
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if res.Outcome != PollPending {
			t.Fatalf("poll %d: expected pending, got %s", i, res.Outcome)
		}
	}
	if n := len(f.repo.requests); n != 1 {
		t.Fatalf("pending poll must not delete; have %d records", n)
	}
	if f.pool.tx.committed {
		t.Fatal("pending poll must not commit a write")
	}
}

func TestService_PollNoActiveRequest(t *testing.T) {
	f := newFixture()

	res, err := f.svc.PollForUser(context.Background(), "U1")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Outcome != PollNone {
		t.Fatalf("expected explicit none, got %s", res.Outcome)
	}
}

func TestService_ResolveGuards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Resolve(ctx, "missing", DecisionAccept); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	req, err := f.svc.Create(ctx, "U1", "+15550001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, req.ID, Decision("escalate")); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
	if _, err := f.svc.Resolve(ctx, req.ID, DecisionReject); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// A second decision must not overwrite the first.
	if _, err := f.svc.Resolve(ctx, req.ID, DecisionAccept); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if f.repo.requests[req.ID].Status != StatusRejected {
		t.Fatalf("status overwritten to %s", f.repo.requests[req.ID].Status)
	}
}

func TestService_ListForProviderNewestFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.identity.users["U2"] = auth.User{ID: "U2", Username: "bob", PhoneNumber: "+15550101"}
	first, err := f.svc.Create(ctx, "U1", "+15550001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.svc.Create(ctx, "U2", "+15550001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A request for another provider must not leak into the queue.
	f.identity.providers["P2"] = auth.ServiceProvider{ID: "P2", PhoneNumber: "+15550002"}
	if _, err := f.svc.Create(ctx, "U1", "+15550002"); err != nil {
		t.Fatalf("create for second provider: %v", err)
	}

	list, err := f.svc.ListForProvider(ctx, "P1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", list[0].ID, list[1].ID)
	}
}

// fixture wires the coordinator against in-memory fakes.
type fixture struct {
	svc      *Service
	repo     *fakeRepo
	pool     *fakePool
	identity *fakeIdentity
}

func newFixture() *fixture {
	repo := newFakeRepo()
	pool := &fakePool{}
	identity := &fakeIdentity{
		users: map[string]auth.User{
			"U1": {ID: "U1", Username: "alice", PhoneNumber: "+15550100"},
		},
		providers: map[string]auth.ServiceProvider{
			"P1": {ID: "P1", Username: "towing-bob", ServiceType: "roadside", PhoneNumber: "+15550001"},
		},
	}

	seq := 0
	svc := NewService(pool, repo, identity).
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("R%d", seq)
		})

	return &fixture{svc: svc, repo: repo, pool: pool, identity: identity}
}

type fakeRepo struct {
	requests map[string]Request
	order    []string
	nextTime time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests: make(map[string]Request),
		nextTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRepo) Create(ctx context.Context, params CreateParams) (Request, error) {
	for _, id := range f.order {
		r := f.requests[id]
		if r.UserID == params.UserID && r.ServiceProviderID == params.ServiceProviderID && r.Status == StatusPending {
			return Request{}, ErrDuplicatePending
		}
	}

	f.nextTime = f.nextTime.Add(time.Second)
	req := Request{
		ID:                params.ID,
		UserID:            params.UserID,
		ServiceProviderID: params.ServiceProviderID,
		Status:            StatusPending,
		CreatedAt:         f.nextTime,
	}
	f.requests[req.ID] = req
	f.order = append(f.order, req.ID)
	return req, nil
}

func (f *fakeRepo) ListByProvider(ctx context.Context, providerID string) ([]Request, error) {
	out := make([]Request, 0, len(f.requests))
	for _, r := range f.requests {
		if r.ServiceProviderID == providerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) Resolve(ctx context.Context, requestID string, status Status) (Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending {
		return Request{}, ErrAlreadyResolved
	}
	req.Status = status
	f.requests[requestID] = req
	return req, nil
}

func (f *fakeRepo) OldestForUserForUpdate(ctx context.Context, tx pgx.Tx, userID string) (Request, error) {
	var (
		oldest Request
		found  bool
	)
	for _, id := range f.order {
		r, ok := f.requests[id]
		if !ok || r.UserID != userID {
			continue
		}
		if !found || r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
			found = true
		}
	}
	if !found {
		return Request{}, ErrNotFound
	}
	return oldest, nil
}

func (f *fakeRepo) DeleteTx(ctx context.Context, tx pgx.Tx, requestID string) error {
	delete(f.requests, requestID)
	return nil
}

type fakeIdentity struct {
	users     map[string]auth.User
	providers map[string]auth.ServiceProvider
}

func (f *fakeIdentity) GetUserByID(ctx context.Context, userID string) (auth.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeIdentity) GetProviderByPhone(ctx context.Context, phoneNumber string) (auth.ServiceProvider, error) {
	for _, p := range f.providers {
		if p.PhoneNumber == phoneNumber {
			return p, nil
		}
	}
	return auth.ServiceProvider{}, auth.ErrProviderNotFound
}

func (f *fakeIdentity) GetProviderByID(ctx context.Context, providerID string) (auth.ServiceProvider, error) {
	p, ok := f.providers[providerID]
	if !ok {
		return auth.ServiceProvider{}, auth.ErrProviderNotFound
	}
	return p, nil
}

type fakePool struct {
	tx fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
