package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emergencyhub/assistant"
)

type chatBody struct {
	Message string              `json:"message"`
	History []assistant.Message `json:"history"`
}

// handleChat answers a free-form question. The caller's position travels in
// query parameters so the agent can ground location-aware answers.
func (s *Server) handleChat(c *gin.Context) {
	var body chatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	reply, err := s.agent.Chat(c.Request.Context(), body.Message, body.History, c.Query("latitude"), c.Query("longitude"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, reply)
}
