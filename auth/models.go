package auth

import "time"

// Actor distinguishes the two account kinds sharing the auth surface.
type Actor string

const (
	ActorUser            Actor = "user"
	ActorServiceProvider Actor = "service_provider"
)

// User is the domain representation of an end user. It mirrors the users table
// and carries no JSON annotations so it can be reused by different
// presentation layers.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	PhoneNumber  string
	CreatedAt    time.Time
}

// ServiceProvider mirrors the service_providers table. PhoneNumber is unique
// and doubles as the public lookup key users address requests to.
type ServiceProvider struct {
	ID           string
	Username     string
	PasswordHash string
	ServiceType  string
	PhoneNumber  string
	CreatedAt    time.Time
}

// RegisterUserRequest contains end-user registration data supplied by callers.
type RegisterUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterProviderRequest contains provider registration data.
type RegisterProviderRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ServiceType string `json:"serviceType"`
	PhoneNumber string `json:"phoneNumber"`
}

// LoginRequest contains login credentials for either actor kind.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
