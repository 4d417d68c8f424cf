package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"video_hearings/internal/service"
	apperrors "video_hearings/pkg/errors"
	"video_hearings/pkg/logger"
)

type ControlHandler struct {
	control service.VideoControlService
	confCtx service.ConferenceContext
	log     logger.Logger
}

func NewControlHandler(control service.VideoControlService, confCtx service.ConferenceContext, log logger.Logger) *ControlHandler {
	return &ControlHandler{
		control: control,
		confCtx: confCtx,
		log:     log,
	}
}

type SetFlagRequest struct {
	Value     *bool `json:"value" binding:"required"`
	TimeoutMS int64 `json:"timeout_ms"`
}

func (h *ControlHandler) currentConference(c *gin.Context) (string, bool) {
	conferenceID, err := h.confCtx.CurrentConferenceID()
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return "", false
	}
	return conferenceID, true
}

func (h *ControlHandler) SetSpotlight(c *gin.Context) {
	conferenceID, ok := h.currentConference(c)
	if !ok {
		return
	}
	participantID := c.Param("participantId")

	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.control.SetSpotlightStatus(c.Request.Context(), conferenceID, participantID, *req.Value, time.Duration(req.TimeoutMS)*time.Millisecond)
	if err != nil {
		h.log.Error("Failed to set spotlight", "participant_id", participantID, "error", err)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, update)
}

func (h *ControlHandler) SetRemoteMute(c *gin.Context) {
	conferenceID, ok := h.currentConference(c)
	if !ok {
		return
	}
	participantID := c.Param("participantId")

	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.control.SetRemoteMuteStatus(c.Request.Context(), conferenceID, participantID, *req.Value, time.Duration(req.TimeoutMS)*time.Millisecond)
	if err != nil {
		h.log.Error("Failed to set remote mute", "participant_id", participantID, "error", err)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, update)
}

func (h *ControlHandler) SetLocalAudioMute(c *gin.Context) {
	h.setLocalFlag(c, h.control.SetLocalAudioMuted)
}

func (h *ControlHandler) SetLocalVideoMute(c *gin.Context) {
	h.setLocalFlag(c, h.control.SetLocalVideoMuted)
}

func (h *ControlHandler) setLocalFlag(c *gin.Context, set func(ctx context.Context, conferenceID, participantID string, value bool) error) {
	conferenceID, ok := h.currentConference(c)
	if !ok {
		return
	}
	participantID := c.Param("participantId")

	var req SetFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := set(c.Request.Context(), conferenceID, participantID, *req.Value); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ControlHandler) GetSpotlighted(c *gin.Context) {
	conferenceID, ok := h.currentConference(c)
	if !ok {
		return
	}

	spotlighted, err := h.control.GetSpotlightedParticipants(c.Request.Context(), conferenceID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	if spotlighted == nil {
		spotlighted = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"spotlighted": spotlighted})
}

func (h *ControlHandler) RestoreSpotlight(c *gin.Context) {
	conferenceID, ok := h.currentConference(c)
	if !ok {
		return
	}
	participantID := c.Param("participantId")

	if err := h.control.RestoreParticipantsSpotlight(c.Request.Context(), conferenceID, participantID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}
