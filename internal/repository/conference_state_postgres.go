package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"video_hearings/internal/domain"
	"video_hearings/pkg/logger"
)

type postgresConferenceStateRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

// NewPostgresConferenceStateRepository is the durable backend: one row per
// (conference, participant) pair in conference_control_states.
func NewPostgresConferenceStateRepository(db *pgxpool.Pool, log logger.Logger) ConferenceStateRepository {
	return &postgresConferenceStateRepository{db: db, log: log}
}

func (r *postgresConferenceStateRepository) SaveHearingStateForConference(ctx context.Context, conferenceID string, state *domain.ConferenceControlState) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := `DELETE FROM conference_control_states WHERE conference_id = $1`
	if _, err := tx.Exec(ctx, deleteQuery, conferenceID); err != nil {
		r.log.Error("Failed to clear conference control state", "conference_id", conferenceID, "error", err)
		return fmt.Errorf("failed to clear conference control state: %w", err)
	}

	if state != nil {
		insertQuery := `
			INSERT INTO conference_control_states
				(conference_id, participant_id, is_spotlighted, is_remote_muted, is_local_audio_muted, is_local_video_muted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`
		for id, flags := range state.ParticipantStates {
			if flags == nil {
				continue
			}
			if _, err := tx.Exec(ctx, insertQuery, conferenceID, id,
				flags.IsSpotlighted, flags.IsRemoteMuted, flags.IsLocalAudioMuted, flags.IsLocalVideoMuted); err != nil {
				r.log.Error("Failed to save participant control state", "conference_id", conferenceID, "participant_id", id, "error", err)
				return fmt.Errorf("failed to save participant control state: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresConferenceStateRepository) LoadHearingStateForConference(ctx context.Context, conferenceID string) (*domain.ConferenceControlState, error) {
	query := `
		SELECT participant_id, is_spotlighted, is_remote_muted, is_local_audio_muted, is_local_video_muted
		FROM conference_control_states
		WHERE conference_id = $1
	`

	rows, err := r.db.Query(ctx, query, conferenceID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.NewConferenceControlState(), nil
		}
		r.log.Error("Failed to load conference control state", "conference_id", conferenceID, "error", err)
		return nil, fmt.Errorf("failed to load conference control state: %w", err)
	}
	defer rows.Close()

	state := domain.NewConferenceControlState()
	for rows.Next() {
		var id string
		flags := &domain.ControlFlags{}
		if err := rows.Scan(&id, &flags.IsSpotlighted, &flags.IsRemoteMuted, &flags.IsLocalAudioMuted, &flags.IsLocalVideoMuted); err != nil {
			return nil, fmt.Errorf("failed to scan control state row: %w", err)
		}
		state.ParticipantStates[id] = flags
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read control state rows: %w", err)
	}

	return state, nil
}
