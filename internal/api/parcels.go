package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

type statusRequest struct {
	Status   string `json:"status"`
	Location string `json:"location"`
}

type stateRequest struct {
	State        string `json:"state"`
	PauseMessage string `json:"pauseMessage"`
}

func (s *Server) handleTrackParcel(c *gin.Context) {
	p, err := s.svc.Parcels.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleListParcels(c *gin.Context) {
	parcels, err := s.svc.Parcels.List(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if parcels == nil {
		parcels = []*model.Parcel{}
	}
	c.JSON(http.StatusOK, parcels)
}

func (s *Server) handleCreateParcel(c *gin.Context) {
	var body model.ParcelDetails
	if !bindBody(c, &body) {
		return
	}
	p, err := s.svc.Parcels.Create(c.Request.Context(), identity(c), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleEditParcel(c *gin.Context) {
	var body model.ParcelDetails
	if !bindBody(c, &body) {
		return
	}
	p, err := s.svc.Parcels.Edit(c.Request.Context(), identity(c), c.Param("id"), body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var body statusRequest
	if !bindBody(c, &body) {
		return
	}
	p, err := s.svc.Parcels.AppendStatusUpdate(c.Request.Context(), identity(c), c.Param("id"), body.Status, body.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSetState(c *gin.Context) {
	var body stateRequest
	if !bindBody(c, &body) {
		return
	}
	p, err := s.svc.Parcels.SetState(c.Request.Context(), identity(c), c.Param("id"), body.State, body.PauseMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteParcel(c *gin.Context) {
	p, err := s.svc.Parcels.Delete(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parcel deleted", "deleted": p})
}

func (s *Server) handleArchiveURL(c *gin.Context) {
	url, err := s.svc.Parcels.ArchiveURL(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
