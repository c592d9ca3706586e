package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound signals that the user does not exist.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrProviderNotFound signals that the service provider does not exist.
	ErrProviderNotFound = errors.New("auth: service provider not found")
)

// DuplicateFieldError reports a unique-constraint violation at registration,
// naming the offending field so the client can surface it.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("auth: %s already exists", e.Field)
}

// Repository handles data access for both identity kinds.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)

	CreateProvider(ctx context.Context, params CreateProviderParams) (ServiceProvider, error)
	GetProviderByUsername(ctx context.Context, username string) (ServiceProvider, error)
	GetProviderByID(ctx context.Context, providerID string) (ServiceProvider, error)
	GetProviderByPhone(ctx context.Context, phoneNumber string) (ServiceProvider, error)
}

// CreateUserParams contains write parameters for creating users.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	PhoneNumber  string
}

// CreateProviderParams contains write parameters for creating providers.
type CreateProviderParams struct {
	Username     string
	PasswordHash string
	ServiceType  string
	PhoneNumber  string
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed identity repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a new user with hashed password.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	const insertSQL = `
		INSERT INTO users (username, password_hash, phone_number)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, phone_number, created_at
	`

	user, err := scanUser(r.pool.QueryRow(ctx, insertSQL, params.Username, params.PasswordHash, params.PhoneNumber))
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return User{}, dup
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *PGRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const selectSQL = `
		SELECT id, username, password_hash, phone_number, created_at
		FROM users
		WHERE username = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by username: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *PGRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	const selectSQL = `
		SELECT id, username, password_hash, phone_number, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by id: %w", err)
	}

	return user, nil
}

// CreateProvider inserts a new service provider with hashed password.
func (r *PGRepository) CreateProvider(ctx context.Context, params CreateProviderParams) (ServiceProvider, error) {
	const insertSQL = `
		INSERT INTO service_providers (username, password_hash, service_type, phone_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, password_hash, service_type, phone_number, created_at
	`

	provider, err := scanProvider(r.pool.QueryRow(ctx, insertSQL,
		params.Username, params.PasswordHash, params.ServiceType, params.PhoneNumber))
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return ServiceProvider{}, dup
		}
		return ServiceProvider{}, fmt.Errorf("auth: create provider: %w", err)
	}

	return provider, nil
}

// GetProviderByUsername retrieves a provider by username.
func (r *PGRepository) GetProviderByUsername(ctx context.Context, username string) (ServiceProvider, error) {
	const selectSQL = `
		SELECT id, username, password_hash, service_type, phone_number, created_at
		FROM service_providers
		WHERE username = $1
	`

	provider, err := scanProvider(r.pool.QueryRow(ctx, selectSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceProvider{}, ErrProviderNotFound
		}
		return ServiceProvider{}, fmt.Errorf("auth: get provider by username: %w", err)
	}

	return provider, nil
}

// GetProviderByID retrieves a provider by ID.
func (r *PGRepository) GetProviderByID(ctx context.Context, providerID string) (ServiceProvider, error) {
	const selectSQL = `
		SELECT id, username, password_hash, service_type, phone_number, created_at
		FROM service_providers
		WHERE id = $1
	`

	provider, err := scanProvider(r.pool.QueryRow(ctx, selectSQL, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceProvider{}, ErrProviderNotFound
		}
		return ServiceProvider{}, fmt.Errorf("auth: get provider by id: %w", err)
	}

	return provider, nil
}

// GetProviderByPhone retrieves a provider by its unique phone number. This is
// the lookup users address service requests to.
func (r *PGRepository) GetProviderByPhone(ctx context.Context, phoneNumber string) (ServiceProvider, error) {
	const selectSQL = `
		SELECT id, username, password_hash, service_type, phone_number, created_at
		FROM service_providers
		WHERE phone_number = $1
	`

	provider, err := scanProvider(r.pool.QueryRow(ctx, selectSQL, phoneNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceProvider{}, ErrProviderNotFound
		}
		return ServiceProvider{}, fmt.Errorf("auth: get provider by phone: %w", err)
	}

	return provider, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.PhoneNumber,
		&user.CreatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func scanProvider(row pgx.Row) (ServiceProvider, error) {
	var provider ServiceProvider
	err := row.Scan(
		&provider.ID,
		&provider.Username,
		&provider.PasswordHash,
		&provider.ServiceType,
		&provider.PhoneNumber,
		&provider.CreatedAt,
	)
	if err != nil {
		return ServiceProvider{}, err
	}
	return provider, nil
}

// duplicateField maps a 23505 unique violation to the field named by the
// violated constraint, or nil when err is some other failure.
func duplicateField(err error) *DuplicateFieldError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "phone") {
		return &DuplicateFieldError{Field: "phoneNumber"}
	}
	return &DuplicateFieldError{Field: "username"}
}
