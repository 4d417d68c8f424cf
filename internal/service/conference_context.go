package service

import (
	"sync"

	"video_hearings/internal/domain"
	apperrors "video_hearings/pkg/errors"
	"video_hearings/pkg/events"
	"video_hearings/pkg/logger"
)

// ConferenceContext holds the identity of the current conference. All
// per-conference state is keyed off this; switching conferences is the only
// trigger for the roster's teardown/rebuild sequence.
type ConferenceContext interface {
	SetCurrentConference(conference *domain.Conference)
	CurrentConference() *domain.Conference
	CurrentConferenceID() (string, error)
	OnCurrentConferenceChanged() *events.Stream[*domain.Conference]
}

type conferenceContext struct {
	mu      sync.RWMutex
	current *domain.Conference
	changed *events.Stream[*domain.Conference]
	log     logger.Logger
}

func NewConferenceContext(log logger.Logger) ConferenceContext {
	return &conferenceContext{
		changed: events.NewStream[*domain.Conference](),
		log:     log,
	}
}

func (c *conferenceContext) SetCurrentConference(conference *domain.Conference) {
	c.mu.Lock()
	c.current = conference
	c.mu.Unlock()

	if conference != nil {
		c.log.Info("Current conference changed", "conference_id", conference.ID)
	} else {
		c.log.Info("Current conference cleared")
	}
	c.changed.Emit(conference)
}

func (c *conferenceContext) CurrentConference() *domain.Conference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *conferenceContext) CurrentConferenceID() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "", apperrors.ErrNoConferenceSet
	}
	return c.current.ID, nil
}

func (c *conferenceContext) OnCurrentConferenceChanged() *events.Stream[*domain.Conference] {
	return c.changed
}
