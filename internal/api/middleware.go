package api

import (
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/model"
	"github.com/dharsanguruparan/TrackFast/internal/service"
)

const identityKey = "identity"

// requestLogger logs one line per request once the handler chain is done.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf(
			"method=%s path=%s status=%d bytes=%d dur=%dms",
			c.Request.Method, c.Request.URL.RequestURI(), c.Writer.Status(), c.Writer.Size(), time.Since(start).Milliseconds(),
		)
	}
}

// requireAuth rejects requests without a valid bearer token and stores the
// caller's identity on the context.
func requireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.Validate(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// identity returns the caller set by requireAuth, or nil on public routes.
func identity(c *gin.Context) *model.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*model.Identity)
	return id
}
