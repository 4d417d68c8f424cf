package repository

import (
	"context"

	"video_hearings/internal/domain"
	"video_hearings/pkg/logger"
)

// conferenceStatesKey is the single cache key the blob of all conference
// states lives under, shaped as map[conferenceID]state.
const conferenceStatesKey = "conferences:video-control-states"

type cacheConferenceStateRepository struct {
	cache KeyValueStore
	log   logger.Logger
}

// NewCacheConferenceStateRepository is the key-value-cache backend: one
// JSON blob for all conferences, save is a read-modify-write of the blob.
func NewCacheConferenceStateRepository(cache KeyValueStore, log logger.Logger) ConferenceStateRepository {
	return &cacheConferenceStateRepository{cache: cache, log: log}
}

func (r *cacheConferenceStateRepository) SaveHearingStateForConference(ctx context.Context, conferenceID string, state *domain.ConferenceControlState) error {
	blob := make(map[string]*domain.ConferenceControlState)
	if _, err := r.cache.LoadValue(ctx, conferenceStatesKey, &blob); err != nil {
		return err
	}

	blob[conferenceID] = state
	return r.cache.SaveValue(ctx, conferenceStatesKey, blob)
}

func (r *cacheConferenceStateRepository) LoadHearingStateForConference(ctx context.Context, conferenceID string) (*domain.ConferenceControlState, error) {
	blob := make(map[string]*domain.ConferenceControlState)
	found, err := r.cache.LoadValue(ctx, conferenceStatesKey, &blob)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.NewConferenceControlState(), nil
	}

	state, ok := blob[conferenceID]
	if !ok || state == nil {
		return domain.NewConferenceControlState(), nil
	}
	if state.ParticipantStates == nil {
		state.ParticipantStates = make(map[string]*domain.ControlFlags)
	}
	return state, nil
}
