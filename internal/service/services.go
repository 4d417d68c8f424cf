package service

import (
	"context"

	"video_hearings/internal/config"
	"video_hearings/internal/repository"
	"video_hearings/pkg/clock"
	"video_hearings/pkg/logger"
)

type Services struct {
	ConferenceContext ConferenceContext
	Roster            RosterService
	VideoControl      VideoControlService
	Recorder          RecorderPresence

	api    VideoAPIClient
	engine *pexipClient
	hub    *eventHubClient
}

func NewServices(repos *repository.Repositories, cfg *config.Config, api VideoAPIClient, log logger.Logger) *Services {
	engine := NewPexipClient(cfg.Pexip, log)
	hub := NewEventHubClient(cfg.EventHub, log)
	confCtx := NewConferenceContext(log)
	roster := NewRosterService(confCtx, api, repos.ConferenceState, engine, hub, log)

	return &Services{
		ConferenceContext: confCtx,
		Roster:            roster,
		VideoControl:      NewVideoControlService(roster, engine, repos.ConferenceState, clock.New(), log),
		Recorder:          NewRecorderPresenceService(api, engine, log),
		api:               api,
		engine:            engine,
		hub:               hub,
	}
}

func (s *Services) API() VideoAPIClient {
	return s.api
}

// Start launches the media-engine and event-hub connections; both stop when
// ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	go s.engine.Run(ctx)
	go s.hub.Run(ctx)
}

func (s *Services) Close() {
	s.Roster.Close()
	s.Recorder.Close()
}
