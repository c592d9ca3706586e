// Package httpapi exposes the application over a JSON HTTP surface. It binds
// requests, maps domain errors to status codes, and delegates everything else
// to the service layer.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emergencyhub/assistant"
	"emergencyhub/auth"
	"emergencyhub/location"
	"emergencyhub/request"
)

// AuthService is the identity surface the handlers depend on.
type AuthService interface {
	RegisterUser(ctx context.Context, req auth.RegisterUserRequest) (*auth.User, error)
	RegisterProvider(ctx context.Context, req auth.RegisterProviderRequest) (*auth.ServiceProvider, error)
	LoginUser(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	LoginProvider(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(tokenString string) (string, auth.Actor, error)
}

// RequestService is the coordination surface the handlers depend on.
type RequestService interface {
	Create(ctx context.Context, userID, providerPhone string) (request.Request, error)
	ListForProvider(ctx context.Context, providerID string) ([]request.Request, error)
	Resolve(ctx context.Context, requestID string, decision request.Decision) (request.Request, error)
	PollForUser(ctx context.Context, userID string) (request.PollResult, error)
}

// Server wires handlers to services.
type Server struct {
	logger   *zap.Logger
	auth     AuthService
	requests RequestService
	resolver location.Resolver
	places   location.PlacesFinder
	routes   location.RouteFinder
	agent    assistant.ConversationalAgent
	origins  []string
}

// NewServer builds a Server. The location capabilities are passed separately
// so callers can supply a single client or distinct implementations.
func NewServer(logger *zap.Logger, authSvc AuthService, reqSvc RequestService) *Server {
	return &Server{
		logger:   logger,
		auth:     authSvc,
		requests: reqSvc,
	}
}

// WithLocation attaches the mapping capabilities.
func (s *Server) WithLocation(resolver location.Resolver, places location.PlacesFinder, routes location.RouteFinder) *Server {
	s.resolver = resolver
	s.places = places
	s.routes = routes
	return s
}

// WithAssistant attaches the conversational agent.
func (s *Server) WithAssistant(agent assistant.ConversationalAgent) *Server {
	s.agent = agent
	return s
}

// WithAllowedOrigins sets the CORS allow-list.
func (s *Server) WithAllowedOrigins(origins []string) *Server {
	s.origins = origins
	return s
}

// Router assembles the gin engine with all routes mounted under /api.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register/user", s.handleRegisterUser)
		authGroup.POST("/login/user", s.handleLoginUser)
		authGroup.POST("/register/service-provider", s.handleRegisterProvider)
		authGroup.POST("/login/service-provider", s.handleLoginProvider)

		authGroup.POST("/request/send", s.handleSendRequest)
		authGroup.POST("/request/accept", s.handleAcceptRequest)
		authGroup.POST("/request/reject", s.handleRejectRequest)
		authGroup.GET("/requests", s.handleProviderRequests)
		authGroup.GET("/srequests", s.handleUserPoll)
	}

	api.POST("/gemini/chat", s.requireAuth(), s.handleChat)

	locationGroup := api.Group("/location")
	locationGroup.Use(s.requireAuth())
	{
		locationGroup.POST("/current-location", s.handleCurrentLocation)
		locationGroup.GET("/location-name", s.handleLocationName)
	}

	roadside := api.Group("/roadside-services")
	roadside.Use(s.requireAuth())
	{
		roadside.GET("/nearby", s.handleNearby)
		roadside.GET("/place-details", s.handlePlaceDetails)
		roadside.GET("/distance-duration", s.handleDistanceDuration)
		roadside.GET("/route", s.handleRoute)
		roadside.GET("/service-details-with-distance", s.handleServiceDetailsWithDistance)
	}

	return r
}
