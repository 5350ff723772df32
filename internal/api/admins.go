package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAdminRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var body loginRequest
	if !bindBody(c, &body) {
		return
	}
	res, err := s.svc.Auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleCreateAdmin(c *gin.Context) {
	var body createAdminRequest
	if !bindBody(c, &body) {
		return
	}
	admin, err := s.svc.Admins.Create(c.Request.Context(), identity(c), body.Email, body.Password, body.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (s *Server) handleListAdmins(c *gin.Context) {
	admins, err := s.svc.Admins.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, admins)
}

func (s *Server) handleDeleteAdmin(c *gin.Context) {
	if err := s.svc.Admins.Delete(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Admin deleted")
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var body passwordRequest
	if !bindBody(c, &body) {
		return
	}
	if err := s.svc.Admins.ResetPassword(c.Request.Context(), identity(c), c.Param("id"), body.Password); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Password updated")
}
