package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"video_hearings/internal/service"
	"video_hearings/pkg/logger"
)

type RosterHandler struct {
	roster   service.RosterService
	recorder service.RecorderPresence
	confCtx  service.ConferenceContext
	log      logger.Logger
}

func NewRosterHandler(roster service.RosterService, recorder service.RecorderPresence, confCtx service.ConferenceContext, log logger.Logger) *RosterHandler {
	return &RosterHandler{
		roster:   roster,
		recorder: recorder,
		confCtx:  confCtx,
		log:      log,
	}
}

func (h *RosterHandler) GetParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Participants())
}

func (h *RosterHandler) GetVirtualMeetingRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.VirtualMeetingRooms())
}

func (h *RosterHandler) GetPexipID(c *gin.Context) {
	participantID := c.Param("participantId")
	pexipID := h.roster.GetPexipIDForParticipant(participantID)
	if pexipID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant has no call id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant_id": participantID, "pexip_id": pexipID})
}

func (h *RosterHandler) GetRecorderPresence(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"recorder_in_call": h.recorder.IsRecorderInCall()})
}
