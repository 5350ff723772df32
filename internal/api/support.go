package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/service"
)

func (s *Server) handlePostMessage(c *gin.Context) {
	var body service.PostMessage
	if !bindBody(c, &body) {
		return
	}
	// Dashboard replies may authenticate with the usual header instead of
	// the body token.
	if body.Token == "" {
		body.Token = bearerToken(c.GetHeader("Authorization"))
	}
	msg, err := s.svc.Support.Post(c.Request.Context(), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) handleListMessages(c *gin.Context) {
	msgs, err := s.svc.Support.List(c.Request.Context(), c.Param("parcelId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
