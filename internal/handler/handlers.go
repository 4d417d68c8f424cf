package handler

import (
	"video_hearings/internal/config"
	"video_hearings/internal/service"
	"video_hearings/pkg/logger"
)

type Handlers struct {
	Health     *HealthHandler
	Conference *ConferenceHandler
	Roster     *RosterHandler
	Control    *ControlHandler
}

func NewHandlers(services *service.Services, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(cfg),
		Conference: NewConferenceHandler(services.ConferenceContext, services.API(), log),
		Roster:     NewRosterHandler(services.Roster, services.Recorder, services.ConferenceContext, log),
		Control:    NewControlHandler(services.VideoControl, services.ConferenceContext, log),
	}
}
