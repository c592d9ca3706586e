package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials signals wrong username or password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrWeakPassword signals password doesn't meet requirements.
	ErrWeakPassword = errors.New("auth: password must be at least 8 characters")
)

const tokenTTL = 24 * time.Hour

// Service handles registration and authentication for both actor kinds.
type Service struct {
	repo      Repository
	jwtSecret []byte
}

// LoginResult bundles the token and actor identifier returned after a
// successful login.
type LoginResult struct {
	Token  string
	UserID string
}

// NewService creates a new authentication service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// RegisterUser creates a new end-user account.
func (s *Service) RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, fmt.Errorf("auth: phoneNumber is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:     req.Username,
		PasswordHash: string(passwordHash),
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// RegisterProvider creates a new service-provider account.
func (s *Service) RegisterProvider(ctx context.Context, req RegisterProviderRequest) (*ServiceProvider, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ServiceType) == "" {
		return nil, fmt.Errorf("auth: serviceType is required")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, fmt.Errorf("auth: phoneNumber is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	provider, err := s.repo.CreateProvider(ctx, CreateProviderParams{
		Username:     req.Username,
		PasswordHash: string(passwordHash),
		ServiceType:  req.ServiceType,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	return &provider, nil
}

// LoginUser authenticates an end user and returns a JWT token.
func (s *Service) LoginUser(ctx context.Context, req LoginRequest) (LoginResult, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	return s.finishLogin(user.ID, user.PasswordHash, req.Password, ActorUser)
}

// LoginProvider authenticates a service provider and returns a JWT token.
func (s *Service) LoginProvider(ctx context.Context, req LoginRequest) (LoginResult, error) {
	provider, err := s.repo.GetProviderByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	return s.finishLogin(provider.ID, provider.PasswordHash, req.Password, ActorServiceProvider)
}

func (s *Service) finishLogin(id, passwordHash, password string, actor Actor) (LoginResult, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.generateToken(id, actor)
	if err != nil {
		return LoginResult{}, fmt.Errorf("auth: generate token: %w", err)
	}

	return LoginResult{Token: token, UserID: id}, nil
}

// VerifyToken validates a JWT token and returns the actor identifier and kind.
func (s *Service) VerifyToken(tokenString string) (string, Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		id, ok := claims["user_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid user_id in token")
		}
		actorStr, ok := claims["actor"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid actor in token")
		}
		actor := Actor(actorStr)
		if actor != ActorUser && actor != ActorServiceProvider {
			return "", "", fmt.Errorf("auth: invalid actor %q in token", actorStr)
		}
		return id, actor, nil
	}

	return "", "", fmt.Errorf("auth: invalid token")
}

// generateToken creates a JWT token for the given actor.
func (s *Service) generateToken(id string, actor Actor) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id,
		"actor":   actor,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("auth: username is required")
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}
