package repository

import (
	"context"

	"video_hearings/internal/domain"
)

// ConferenceStateRepository persists per-conference video-control state.
// Loading a conference with no prior state returns an empty-but-valid
// record, never an error.
type ConferenceStateRepository interface {
	SaveHearingStateForConference(ctx context.Context, conferenceID string, state *domain.ConferenceControlState) error
	LoadHearingStateForConference(ctx context.Context, conferenceID string) (*domain.ConferenceControlState, error)
}
