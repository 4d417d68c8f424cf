package service

import (
	"context"
	"sync"

	"video_hearings/internal/domain"
	"video_hearings/pkg/events"
	"video_hearings/pkg/logger"
)

// ClientSettingsProvider is the slice of the backend API the recorder
// detector needs.
type ClientSettingsProvider interface {
	GetClientSettings(ctx context.Context) (*domain.ClientSettings, error)
}

// RecorderPresence answers "is the audio recording bot currently in the
// call", independently of the main roster. Detection is inert until the
// recorder's expected display name has been resolved from client settings.
type RecorderPresence interface {
	IsRecorderInCall() bool
	OnRecorderInCall() *events.Stream[bool]
	Close()
}

type recorderPresenceService struct {
	engine CallEngine
	log    logger.Logger

	mu           sync.Mutex
	recorderUUID string
	inCall       bool

	changed *events.Stream[bool]
	done    chan struct{}
	once    sync.Once
}

func NewRecorderPresenceService(settings ClientSettingsProvider, engine CallEngine, log logger.Logger) RecorderPresence {
	s := &recorderPresenceService{
		engine:  engine,
		log:     log,
		changed: events.NewStream[bool](),
		done:    make(chan struct{}),
	}

	go s.start(settings)
	return s
}

func (s *recorderPresenceService) start(settings ClientSettingsProvider) {
	clientSettings, err := settings.GetClientSettings(context.Background())
	if err != nil {
		s.log.Error("Failed to load client settings, recorder detection disabled", "error", err)
		return
	}
	expectedName := clientSettings.RecorderDisplayName
	if expectedName == "" {
		s.log.Warn("No recorder display name configured, recorder detection disabled")
		return
	}

	createdSub := s.engine.OnParticipantCreated().Subscribe()
	deletedSub := s.engine.OnParticipantDeleted().Subscribe()
	defer createdSub.Unsubscribe()
	defer deletedSub.Unsubscribe()

	s.log.Info("Recorder presence detection active", "display_name", expectedName)

	for {
		select {
		case update, ok := <-createdSub.C:
			if !ok {
				return
			}
			if update.PexipDisplayName != expectedName {
				continue
			}
			s.mu.Lock()
			s.recorderUUID = update.UUID
			s.inCall = true
			s.mu.Unlock()
			s.changed.Emit(true)
		case deletedUUID, ok := <-deletedSub.C:
			if !ok {
				return
			}
			s.mu.Lock()
			if s.recorderUUID == "" || deletedUUID != s.recorderUUID {
				s.mu.Unlock()
				continue
			}
			s.recorderUUID = ""
			s.inCall = false
			s.mu.Unlock()
			s.changed.Emit(false)
		case <-s.done:
			return
		}
	}
}

func (s *recorderPresenceService) IsRecorderInCall() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inCall
}

func (s *recorderPresenceService) OnRecorderInCall() *events.Stream[bool] {
	return s.changed
}

func (s *recorderPresenceService) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}
