package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"video_hearings/internal/domain"
	"video_hearings/internal/repository"
	"video_hearings/pkg/clock"
	apperrors "video_hearings/pkg/errors"
	"video_hearings/pkg/logger"
)

// confirmationBackoff is the delay before resending a command whose engine
// confirmation reported the wrong flag value.
const confirmationBackoff = 200 * time.Millisecond

// restoreTimeout bounds the confirmation wait for spotlight restoration
// after a reconnect.
const restoreTimeout = 30 * time.Second

// VideoControlService converts a desired control-flag value for a
// participant-or-VMR into an engine command plus a confirmed, persisted
// state-store write.
type VideoControlService interface {
	SetSpotlightStatus(ctx context.Context, conferenceID, participantID string, spotlight bool, timeout time.Duration) (*domain.ParticipantUpdated, error)
	SetRemoteMuteStatus(ctx context.Context, conferenceID, participantID string, mute bool, timeout time.Duration) (*domain.ParticipantUpdated, error)

	SetLocalAudioMuted(ctx context.Context, conferenceID, participantID string, muted bool) error
	SetLocalVideoMuted(ctx context.Context, conferenceID, participantID string, muted bool) error
	GetLocalAudioMuted(ctx context.Context, conferenceID, participantID string) (bool, error)
	GetLocalVideoMuted(ctx context.Context, conferenceID, participantID string) (bool, error)

	IsParticipantSpotlighted(ctx context.Context, conferenceID, participantID string) (bool, error)
	GetSpotlightedParticipants(ctx context.Context, conferenceID string) ([]string, error)
	RestoreParticipantsSpotlight(ctx context.Context, conferenceID, participantID string) error
}

type videoControlService struct {
	roster RosterService
	engine CallEngine
	states repository.ConferenceStateRepository
	clk    clock.Clock
	log    logger.Logger

	// serializes read-modify-write cycles against the state store
	stateMu sync.Mutex
}

func NewVideoControlService(roster RosterService, engine CallEngine, states repository.ConferenceStateRepository, clk clock.Clock, log logger.Logger) VideoControlService {
	return &videoControlService{
		roster: roster,
		engine: engine,
		states: states,
		clk:    clk,
		log:    log,
	}
}

func (s *videoControlService) SetSpotlightStatus(ctx context.Context, conferenceID, participantID string, spotlight bool, timeout time.Duration) (*domain.ParticipantUpdated, error) {
	send := func() error {
		pexipID := s.roster.GetPexipIDForParticipant(participantID)
		return s.engine.SpotlightParticipant(ctx, pexipID, spotlight, conferenceID, participantID)
	}
	confirmed := func(update domain.ParticipantUpdated) bool {
		return update.IsSpotlighted == spotlight
	}
	persist := func(flags *domain.ControlFlags) {
		flags.IsSpotlighted = spotlight
	}
	return s.setConfirmedStatus(ctx, conferenceID, participantID, timeout, send, confirmed, persist)
}

func (s *videoControlService) SetRemoteMuteStatus(ctx context.Context, conferenceID, participantID string, mute bool, timeout time.Duration) (*domain.ParticipantUpdated, error) {
	send := func() error {
		pexipID := s.roster.GetPexipIDForParticipant(participantID)
		return s.engine.MuteParticipant(ctx, pexipID, mute, conferenceID, participantID)
	}
	confirmed := func(update domain.ParticipantUpdated) bool {
		return update.IsRemoteMuted == mute
	}
	persist := func(flags *domain.ControlFlags) {
		flags.IsRemoteMuted = mute
	}
	return s.setConfirmedStatus(ctx, conferenceID, participantID, timeout, send, confirmed, persist)
}

// setConfirmedStatus runs the issue/await-confirmation/retry state machine:
// send the command, watch the engine's update stream for the participant,
// resend after a fixed backoff while the reported flag disagrees, persist
// on confirmation. A zero timeout means wait indefinitely.
func (s *videoControlService) setConfirmedStatus(
	ctx context.Context,
	conferenceID, participantID string,
	timeout time.Duration,
	send func() error,
	confirmed func(domain.ParticipantUpdated) bool,
	persist func(*domain.ControlFlags),
) (*domain.ParticipantUpdated, error) {
	sub := s.engine.OnParticipantUpdated().Subscribe()
	defer sub.Unsubscribe()

	if err := send(); err != nil {
		return nil, fmt.Errorf("failed to send engine command: %w", err)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timeoutCh = s.clk.After(timeout)
	}

	var backoffCh <-chan time.Time
	for {
		select {
		case update, ok := <-sub.C:
			if !ok {
				return nil, apperrors.ErrEngineNotConnected
			}
			if !strings.Contains(update.PexipDisplayName, participantID) {
				continue
			}
			if confirmed(update) {
				if err := s.updateState(ctx, conferenceID, participantID, persist); err != nil {
					return nil, err
				}
				return &update, nil
			}
			// engine reports the old value; back off, then resend
			if backoffCh == nil {
				backoffCh = s.clk.After(confirmationBackoff)
			}
		case <-backoffCh:
			backoffCh = nil
			if err := send(); err != nil {
				return nil, fmt.Errorf("failed to resend engine command: %w", err)
			}
		case <-timeoutCh:
			s.log.Warn("Engine confirmation timed out", "conference_id", conferenceID, "participant_id", participantID)
			return nil, apperrors.ErrConfirmationTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// updateState is a read-modify-write of the participant's flags record.
func (s *videoControlService) updateState(ctx context.Context, conferenceID, participantID string, mutate func(*domain.ControlFlags)) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return err
	}
	mutate(state.Ensure(participantID))
	return s.states.SaveHearingStateForConference(ctx, conferenceID, state)
}

// Local audio/video mutes are local-only toggles: no engine round trip,
// written straight to the state store.

func (s *videoControlService) SetLocalAudioMuted(ctx context.Context, conferenceID, participantID string, muted bool) error {
	return s.updateState(ctx, conferenceID, participantID, func(flags *domain.ControlFlags) {
		flags.IsLocalAudioMuted = muted
	})
}

func (s *videoControlService) SetLocalVideoMuted(ctx context.Context, conferenceID, participantID string, muted bool) error {
	return s.updateState(ctx, conferenceID, participantID, func(flags *domain.ControlFlags) {
		flags.IsLocalVideoMuted = muted
	})
}

func (s *videoControlService) GetLocalAudioMuted(ctx context.Context, conferenceID, participantID string) (bool, error) {
	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return false, err
	}
	return state.Flags(participantID).IsLocalAudioMuted, nil
}

func (s *videoControlService) GetLocalVideoMuted(ctx context.Context, conferenceID, participantID string) (bool, error) {
	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return false, err
	}
	return state.Flags(participantID).IsLocalVideoMuted, nil
}

func (s *videoControlService) IsParticipantSpotlighted(ctx context.Context, conferenceID, participantID string) (bool, error) {
	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return false, err
	}
	return state.Flags(participantID).IsSpotlighted, nil
}

// GetSpotlightedParticipants returns every id whose cached spotlight flag
// is set, in the order encountered.
func (s *videoControlService) GetSpotlightedParticipants(ctx context.Context, conferenceID string) ([]string, error) {
	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	var spotlighted []string
	for id, flags := range state.ParticipantStates {
		if flags != nil && flags.IsSpotlighted {
			spotlighted = append(spotlighted, id)
		}
	}
	return spotlighted, nil
}

// RestoreParticipantsSpotlight re-issues the spotlight command for a
// participant whose cached flag is set, resynchronizing the engine after a
// reconnect. A clear flag means there is nothing to restore.
func (s *videoControlService) RestoreParticipantsSpotlight(ctx context.Context, conferenceID, participantID string) error {
	state, err := s.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		return err
	}

	if !state.Flags(participantID).IsSpotlighted {
		s.log.Debug("No spotlight state to restore", "conference_id", conferenceID, "participant_id", participantID)
		return nil
	}

	go func() {
		if _, err := s.SetSpotlightStatus(context.Background(), conferenceID, participantID, true, restoreTimeout); err != nil {
			s.log.Warn("Failed to restore spotlight", "conference_id", conferenceID, "participant_id", participantID, "error", err)
		}
	}()
	return nil
}
