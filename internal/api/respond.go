package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/service"
)

func respondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// respondError maps error kinds to status codes. Unknown failures are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrAuth), errors.Is(err, model.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrArchiveDisabled):
		respondMessage(c, http.StatusServiceUnavailable, "Parcel archive is not configured")
		return
	default:
		log.Printf("request failed: method=%s path=%s err=%v", c.Request.Method, c.Request.URL.Path, err)
		respondMessage(c, http.StatusInternalServerError, "Server error")
		return
	}
	var kind *model.Error
	if errors.As(err, &kind) {
		respondMessage(c, status, kind.Msg)
		return
	}
	respondMessage(c, status, err.Error())
}

// bindBody decodes a JSON body into dst. A missing body leaves dst zero so
// the service reports which fields are required.
func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		respondMessage(c, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
