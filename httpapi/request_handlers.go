package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emergencyhub/request"
)

type sendRequestBody struct {
	UserID               string `json:"userId"`
	ServiceProviderPhone string `json:"serviceProviderPhone"`
}

type resolveRequestBody struct {
	RequestID string `json:"requestId"`
}

func (s *Server) handleSendRequest(c *gin.Context) {
	var body sendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.UserID == "" || body.ServiceProviderPhone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId and serviceProviderPhone are required"})
		return
	}

	req, err := s.requests.Create(c.Request.Context(), body.UserID, body.ServiceProviderPhone)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Request sent successfully", "request": req})
}

func (s *Server) handleAcceptRequest(c *gin.Context) {
	s.resolveRequest(c, request.DecisionAccept, "Request accepted")
}

func (s *Server) handleRejectRequest(c *gin.Context) {
	s.resolveRequest(c, request.DecisionReject, "Request rejected")
}

func (s *Server) resolveRequest(c *gin.Context, decision request.Decision, message string) {
	var body resolveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.RequestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requestId is required"})
		return
	}

	req, err := s.requests.Resolve(c.Request.Context(), body.RequestID, decision)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "request": req})
}

// handleProviderRequests returns the provider's pending queue, newest first.
func (s *Server) handleProviderRequests(c *gin.Context) {
	providerID := c.Query("serviceProviderId")
	if providerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "serviceProviderId is required"})
		return
	}

	requests, err := s.requests.ListForProvider(c.Request.Context(), providerID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if requests == nil {
		requests = []request.Request{}
	}

	c.JSON(http.StatusOK, requests)
}

// handleUserPoll answers the user's status poll. Terminal answers are consumed
// here; the next poll for the same user sees "none".
func (s *Server) handleUserPoll(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	result, err := s.requests.PollForUser(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{"message": result.Outcome}
	if result.Outcome == request.PollAccepted && result.ProviderPhone != "" {
		resp["providerPhone"] = result.ProviderPhone
	}

	c.JSON(http.StatusOK, resp)
}
