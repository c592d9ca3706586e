package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestService_RegisterAndLoginUser(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterUserRequest{
		Username:    "alice",
		Password:    "supersafe",
		PhoneNumber: "+15550100",
	}

	ctx := context.Background()
	user, err := svc.RegisterUser(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if user.Username != req.Username {
		t.Fatalf("expected username %q got %q", req.Username, user.Username)
	}
	if user.PasswordHash == req.Password {
		t.Fatal("register: password stored in plain text")
	}

	resp, err := svc.LoginUser(ctx, LoginRequest{Username: req.Username, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.UserID != user.ID {
		t.Fatalf("login: expected user id %q got %q", user.ID, resp.UserID)
	}

	tokenID, actor, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenID != user.ID {
		t.Fatalf("verify token: expected %q got %q", user.ID, tokenID)
	}
	if actor != ActorUser {
		t.Fatalf("verify token: expected actor %s got %s", ActorUser, actor)
	}
}

func TestService_RegisterAndLoginProvider(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterProviderRequest{
		Username:    "towing-bob",
		Password:    "strongpassword",
		ServiceType: "roadside",
		PhoneNumber: "+15550001",
	}

	ctx := context.Background()
	provider, err := svc.RegisterProvider(ctx, req)
	if err != nil {
		t.Fatalf("register provider: unexpected error: %v", err)
	}
	if provider.PhoneNumber != req.PhoneNumber {
		t.Fatalf("expected phone %q got %q", req.PhoneNumber, provider.PhoneNumber)
	}

	resp, err := svc.LoginProvider(ctx, LoginRequest{Username: req.Username, Password: req.Password})
	if err != nil {
		t.Fatalf("login provider: unexpected error: %v", err)
	}

	tokenID, actor, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenID != provider.ID {
		t.Fatalf("verify token: expected %q got %q", provider.ID, tokenID)
	}
	if actor != ActorServiceProvider {
		t.Fatalf("verify token: expected actor %s got %s", ActorServiceProvider, actor)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.RegisterUser(context.Background(), RegisterUserRequest{
		Username:    "alice",
		Password:    "short",
		PhoneNumber: "+15550100",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.RegisterUser(context.Background(), RegisterUserRequest{
		Username: "alice",
		Password: "strongpassword",
	}); err == nil {
		t.Fatal("expected validation error for missing phone number")
	}

	if _, err := svc.RegisterProvider(context.Background(), RegisterProviderRequest{
		Username:    "towing-bob",
		Password:    "strongpassword",
		PhoneNumber: "+15550001",
	}); err == nil {
		t.Fatal("expected validation error for missing service type")
	}
}

func TestService_DuplicateProviderPhone(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	first := RegisterProviderRequest{
		Username:    "towing-bob",
		Password:    "strongpassword",
		ServiceType: "roadside",
		PhoneNumber: "+15550001",
	}
	if _, err := svc.RegisterProvider(context.Background(), first); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	second := first
	second.Username = "towing-carol"
	_, err := svc.RegisterProvider(context.Background(), second)

	var dup *DuplicateFieldError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}
	if dup.Field != "phoneNumber" {
		t.Fatalf("expected duplicate field phoneNumber, got %q", dup.Field)
	}
}

func TestService_DuplicateUsername(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterUserRequest{
		Username:    "alice",
		Password:    "strongpassword",
		PhoneNumber: "+15550100",
	}
	if _, err := svc.RegisterUser(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	req.PhoneNumber = "+15550101"
	_, err := svc.RegisterUser(context.Background(), req)

	var dup *DuplicateFieldError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}
	if dup.Field != "username" {
		t.Fatalf("expected duplicate field username, got %q", dup.Field)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.LoginUser(context.Background(), LoginRequest{
		Username: "unknown",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if _, err := svc.RegisterUser(context.Background(), RegisterUserRequest{
		Username:    "alice",
		Password:    "strongpassword",
		PhoneNumber: "+15550100",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.LoginUser(context.Background(), LoginRequest{
		Username: "alice",
		Password: "wrongpassword",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
}

type fakeRepository struct {
	usersByName     map[string]User
	usersByID       map[string]User
	providersByName map[string]ServiceProvider
	providersByID   map[string]ServiceProvider
	nextID          int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByName:     make(map[string]User),
		usersByID:       make(map[string]User),
		providersByName: make(map[string]ServiceProvider),
		providersByID:   make(map[string]ServiceProvider),
		nextID:          1,
	}
}

func (f *fakeRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if _, exists := f.usersByName[strings.ToLower(params.Username)]; exists {
		return User{}, &DuplicateFieldError{Field: "username"}
	}

	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++

	user := User{
		ID:           id,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		PhoneNumber:  params.PhoneNumber,
		CreatedAt:    time.Now().UTC(),
	}

	f.usersByName[strings.ToLower(user.Username)] = user
	f.usersByID[user.ID] = user

	return user, nil
}

func (f *fakeRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	user, ok := f.usersByName[strings.ToLower(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, ok := f.usersByID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) CreateProvider(ctx context.Context, params CreateProviderParams) (ServiceProvider, error) {
	if _, exists := f.providersByName[strings.ToLower(params.Username)]; exists {
		return ServiceProvider{}, &DuplicateFieldError{Field: "username"}
	}
	for _, p := range f.providersByID {
		if p.PhoneNumber == params.PhoneNumber {
			return ServiceProvider{}, &DuplicateFieldError{Field: "phoneNumber"}
		}
	}

	id := fmt.Sprintf("provider-%d", f.nextID)
	f.nextID++

	provider := ServiceProvider{
		ID:           id,
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
		ServiceType:  params.ServiceType,
		PhoneNumber:  params.PhoneNumber,
		CreatedAt:    time.Now().UTC(),
	}

	f.providersByName[strings.ToLower(provider.Username)] = provider
	f.providersByID[provider.ID] = provider

	return provider, nil
}

func (f *fakeRepository) GetProviderByUsername(ctx context.Context, username string) (ServiceProvider, error) {
	provider, ok := f.providersByName[strings.ToLower(username)]
	if !ok {
		return ServiceProvider{}, ErrProviderNotFound
	}
	return provider, nil
}

func (f *fakeRepository) GetProviderByID(ctx context.Context, providerID string) (ServiceProvider, error) {
	provider, ok := f.providersByID[providerID]
	if !ok {
		return ServiceProvider{}, ErrProviderNotFound
	}
	return provider, nil
}

func (f *fakeRepository) GetProviderByPhone(ctx context.Context, phoneNumber string) (ServiceProvider, error) {
	for _, p := range f.providersByID {
		if p.PhoneNumber == phoneNumber {
			return p, nil
		}
	}
	return ServiceProvider{}, ErrProviderNotFound
}
