package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"video_hearings/internal/config"
	"video_hearings/internal/domain"
	"video_hearings/pkg/events"
	"video_hearings/pkg/logger"
)

// EventHub is the backend's push-event source. Every message is tagged
// with a conference id; filtering against the current conference happens
// in the roster service, not here.
type EventHub interface {
	OnParticipantStatusChanged() *events.Stream[domain.ParticipantStatusMessage]
	OnParticipantsUpdated() *events.Stream[domain.ParticipantsUpdatedMessage]
	OnEndpointsUpdated() *events.Stream[domain.EndpointsUpdatedMessage]
}

const (
	hubMessageParticipantStatus   = "participant_status"
	hubMessageParticipantsUpdated = "participants_updated"
	hubMessageEndpointsUpdated    = "endpoints_updated"
)

type hubFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type eventHubClient struct {
	cfg config.EventHubConfig
	log logger.Logger

	statusChanged       *events.Stream[domain.ParticipantStatusMessage]
	participantsUpdated *events.Stream[domain.ParticipantsUpdatedMessage]
	endpointsUpdated    *events.Stream[domain.EndpointsUpdatedMessage]
}

func NewEventHubClient(cfg config.EventHubConfig, log logger.Logger) *eventHubClient {
	return &eventHubClient{
		cfg:                 cfg,
		log:                 log,
		statusChanged:       events.NewStream[domain.ParticipantStatusMessage](),
		participantsUpdated: events.NewStream[domain.ParticipantsUpdatedMessage](),
		endpointsUpdated:    events.NewStream[domain.EndpointsUpdatedMessage](),
	}
}

func (c *eventHubClient) OnParticipantStatusChanged() *events.Stream[domain.ParticipantStatusMessage] {
	return c.statusChanged
}

func (c *eventHubClient) OnParticipantsUpdated() *events.Stream[domain.ParticipantsUpdatedMessage] {
	return c.participantsUpdated
}

func (c *eventHubClient) OnEndpointsUpdated() *events.Stream[domain.EndpointsUpdatedMessage] {
	return c.endpointsUpdated
}

// Run keeps the hub connection alive until ctx is cancelled.
func (c *eventHubClient) Run(ctx context.Context) {
	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("Event hub connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (c *eventHubClient) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.log.Info("Connected to event hub", "url", c.cfg.URL)

	for {
		var frame hubFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		c.dispatch(frame)
	}
}

func (c *eventHubClient) dispatch(frame hubFrame) {
	switch frame.Type {
	case hubMessageParticipantStatus:
		var msg domain.ParticipantStatusMessage
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			c.log.Debug("Dropping malformed hub message", "type", frame.Type, "error", err)
			return
		}
		c.statusChanged.Emit(msg)
	case hubMessageParticipantsUpdated:
		var msg domain.ParticipantsUpdatedMessage
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			c.log.Debug("Dropping malformed hub message", "type", frame.Type, "error", err)
			return
		}
		c.participantsUpdated.Emit(msg)
	case hubMessageEndpointsUpdated:
		var msg domain.EndpointsUpdatedMessage
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			c.log.Debug("Dropping malformed hub message", "type", frame.Type, "error", err)
			return
		}
		c.endpointsUpdated.Emit(msg)
	default:
		c.log.Debug("Ignoring unknown hub message", "type", frame.Type)
	}
}
