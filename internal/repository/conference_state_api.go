package repository

import (
	"context"

	"video_hearings/internal/domain"
	"video_hearings/pkg/logger"
)

// VideoControlStatusClient is the slice of the backend video API this
// backend needs; the full client lives in the service layer.
type VideoControlStatusClient interface {
	GetVideoControlStatusesForConference(ctx context.Context, conferenceID string) (*domain.ConferenceVideoControlStatuses, error)
	SetVideoControlStatusesForConference(ctx context.Context, conferenceID string, req *domain.SetVideoControlStatusesRequest) error
}

type apiConferenceStateRepository struct {
	client VideoControlStatusClient
	log    logger.Logger
}

// NewAPIConferenceStateRepository is the remote backend: state round-trips
// through the backend video API. Remote mute is not persisted server-side
// and is reported muted on every load.
func NewAPIConferenceStateRepository(client VideoControlStatusClient, log logger.Logger) ConferenceStateRepository {
	return &apiConferenceStateRepository{client: client, log: log}
}

func (r *apiConferenceStateRepository) SaveHearingStateForConference(ctx context.Context, conferenceID string, state *domain.ConferenceControlState) error {
	req := &domain.SetVideoControlStatusesRequest{
		ParticipantIDToUpdatedStatus: make(map[string]domain.VideoControlStatusDTO),
	}
	if state != nil {
		for id, flags := range state.ParticipantStates {
			if flags == nil {
				continue
			}
			req.ParticipantIDToUpdatedStatus[id] = domain.VideoControlStatusDTO{
				IsSpotlighted:     flags.IsSpotlighted,
				IsLocalAudioMuted: flags.IsLocalAudioMuted,
				IsLocalVideoMuted: flags.IsLocalVideoMuted,
			}
		}
	}

	return r.client.SetVideoControlStatusesForConference(ctx, conferenceID, req)
}

func (r *apiConferenceStateRepository) LoadHearingStateForConference(ctx context.Context, conferenceID string) (*domain.ConferenceControlState, error) {
	statuses, err := r.client.GetVideoControlStatusesForConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	state := domain.NewConferenceControlState()
	if statuses == nil {
		return state, nil
	}
	for id, dto := range statuses.ParticipantStates {
		state.ParticipantStates[id] = &domain.ControlFlags{
			IsSpotlighted:     dto.IsSpotlighted,
			IsLocalAudioMuted: dto.IsLocalAudioMuted,
			IsLocalVideoMuted: dto.IsLocalVideoMuted,
			IsRemoteMuted:     true,
		}
	}
	return state, nil
}
