package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inbox-service/internal/inbox"
)

// WriteError maps domain errors onto HTTP responses. fallback is the
// message used for backend and unexpected failures.
func WriteError(c *gin.Context, err error, fallback string) {
	var verr *inbox.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if len(verr.MessageIDs) > 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": verr.Reason, "message_ids": verr.MessageIDs})
	case errors.Is(err, inbox.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, inbox.ErrBackendUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": fallback})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
