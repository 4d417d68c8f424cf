package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"video_hearings/internal/service"
	"video_hearings/pkg/logger"
)

type ConferenceHandler struct {
	confCtx service.ConferenceContext
	api     service.VideoAPIClient
	log     logger.Logger
}

func NewConferenceHandler(confCtx service.ConferenceContext, api service.VideoAPIClient, log logger.Logger) *ConferenceHandler {
	return &ConferenceHandler{
		confCtx: confCtx,
		api:     api,
		log:     log,
	}
}

type SelectConferenceRequest struct {
	ConferenceID string `json:"conference_id" binding:"required"`
}

// Select makes a conference current, triggering the roster's
// teardown/rebuild sequence.
func (h *ConferenceHandler) Select(c *gin.Context) {
	var req SelectConferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := uuid.Parse(req.ConferenceID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conference ID"})
		return
	}

	conference, err := h.api.GetConference(c.Request.Context(), req.ConferenceID)
	if err != nil {
		h.log.Error("Failed to fetch conference", "conference_id", req.ConferenceID, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "conference not found"})
		return
	}

	h.confCtx.SetCurrentConference(conference)
	c.JSON(http.StatusOK, conference)
}

// Clear unsets the current conference; the roster is left empty.
func (h *ConferenceHandler) Clear(c *gin.Context) {
	h.confCtx.SetCurrentConference(nil)
	c.Status(http.StatusNoContent)
}

func (h *ConferenceHandler) GetCurrent(c *gin.Context) {
	conference := h.confCtx.CurrentConference()
	if conference == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no current conference"})
		return
	}
	c.JSON(http.StatusOK, conference)
}
