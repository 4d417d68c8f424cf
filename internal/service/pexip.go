package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"video_hearings/internal/config"
	"video_hearings/internal/domain"
	apperrors "video_hearings/pkg/errors"
	"video_hearings/pkg/events"
	"video_hearings/pkg/logger"
)

// CallEngine is the media mixer's event/command interface. The engine
// itself (negotiation, SDP, ICE) is an external collaborator; this service
// only consumes its participant event stream and issues control commands.
type CallEngine interface {
	OnParticipantCreated() *events.Stream[domain.ParticipantUpdated]
	OnParticipantUpdated() *events.Stream[domain.ParticipantUpdated]
	OnParticipantDeleted() *events.Stream[string]

	SpotlightParticipant(ctx context.Context, pexipID string, spotlight bool, conferenceID, participantID string) error
	MuteParticipant(ctx context.Context, pexipID string, mute bool, conferenceID, participantID string) error
}

const (
	pexipEventParticipantCreated = "participant_created"
	pexipEventParticipantUpdated = "participant_updated"
	pexipEventParticipantDeleted = "participant_deleted"

	pexipCommandSpotlight = "spotlight"
	pexipCommandMute      = "mute"
)

type pexipEventFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type pexipDeletedPayload struct {
	UUID string `json:"uuid"`
}

type pexipCommandFrame struct {
	Command       string `json:"command"`
	PexipID       string `json:"pexip_id"`
	Value         bool   `json:"value"`
	ConferenceID  string `json:"conference_id"`
	ParticipantID string `json:"participant_id"`
}

// pexipClient talks to the media engine over a single WebSocket: events in,
// commands out.
type pexipClient struct {
	cfg config.PexipConfig
	log logger.Logger

	created *events.Stream[domain.ParticipantUpdated]
	updated *events.Stream[domain.ParticipantUpdated]
	deleted *events.Stream[string]

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewPexipClient(cfg config.PexipConfig, log logger.Logger) *pexipClient {
	return &pexipClient{
		cfg:     cfg,
		log:     log,
		created: events.NewStream[domain.ParticipantUpdated](),
		updated: events.NewStream[domain.ParticipantUpdated](),
		deleted: events.NewStream[string](),
	}
}

func (c *pexipClient) OnParticipantCreated() *events.Stream[domain.ParticipantUpdated] {
	return c.created
}

func (c *pexipClient) OnParticipantUpdated() *events.Stream[domain.ParticipantUpdated] {
	return c.updated
}

func (c *pexipClient) OnParticipantDeleted() *events.Stream[string] {
	return c.deleted
}

// Run maintains the engine connection until ctx is cancelled, reconnecting
// with a fixed delay.
func (c *pexipClient) Run(ctx context.Context) {
	delay := c.cfg.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("Media engine connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (c *pexipClient) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.SocketURL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Info("Connected to media engine event socket", "url", c.cfg.SocketURL)

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		var frame pexipEventFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		c.dispatch(frame)
	}
}

func (c *pexipClient) dispatch(frame pexipEventFrame) {
	switch frame.Event {
	case pexipEventParticipantCreated, pexipEventParticipantUpdated:
		var update domain.ParticipantUpdated
		if err := json.Unmarshal(frame.Payload, &update); err != nil {
			c.log.Debug("Dropping malformed engine event", "event", frame.Event, "error", err)
			return
		}
		if frame.Event == pexipEventParticipantCreated {
			c.created.Emit(update)
		} else {
			c.updated.Emit(update)
		}
	case pexipEventParticipantDeleted:
		var payload pexipDeletedPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.log.Debug("Dropping malformed engine event", "event", frame.Event, "error", err)
			return
		}
		c.deleted.Emit(payload.UUID)
	default:
		c.log.Debug("Ignoring unknown engine event", "event", frame.Event)
	}
}

func (c *pexipClient) SpotlightParticipant(ctx context.Context, pexipID string, spotlight bool, conferenceID, participantID string) error {
	return c.send(pexipCommandFrame{
		Command:       pexipCommandSpotlight,
		PexipID:       pexipID,
		Value:         spotlight,
		ConferenceID:  conferenceID,
		ParticipantID: participantID,
	})
}

func (c *pexipClient) MuteParticipant(ctx context.Context, pexipID string, mute bool, conferenceID, participantID string) error {
	return c.send(pexipCommandFrame{
		Command:       pexipCommandMute,
		PexipID:       pexipID,
		Value:         mute,
		ConferenceID:  conferenceID,
		ParticipantID: participantID,
	})
}

func (c *pexipClient) send(frame pexipCommandFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return apperrors.ErrEngineNotConnected
	}
	return c.conn.WriteJSON(frame)
}
