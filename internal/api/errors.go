package api

import (
	"errors"
	"net/http"

	"agentforge/internal/agents"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, agents.ErrTemplateNotFound),
		errors.Is(err, agents.ErrMissingField),
		errors.Is(err, agents.ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, agents.ErrNotRegistered):
		return http.StatusConflict
	case errors.Is(err, agents.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, agents.ErrUpstreamFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the {success: false, error} envelope with the status
// matching err.
func (a *AgentAPI) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": err.Error()})
}
