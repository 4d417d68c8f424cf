package domain

// Wire shapes exchanged with the backend video API.

type RoomSummaryDTO struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Locked bool   `json:"locked"`
}

type ParticipantDTO struct {
	ID              string            `json:"id"`
	DisplayName     string            `json:"display_name"`
	Role            Role              `json:"role"`
	HearingRole     HearingRole       `json:"hearing_role"`
	Status          ParticipantStatus `json:"status"`
	InterpreterRoom *RoomSummaryDTO   `json:"interpreter_room,omitempty"`
}

type EndpointDTO struct {
	ID              string            `json:"id"`
	DisplayName     string            `json:"display_name"`
	Status          ParticipantStatus `json:"status"`
	DefenceAdvocate string            `json:"defence_advocate,omitempty"`
}

// ParticipantFromDTO is the canonical backend-to-model conversion.
func ParticipantFromDTO(dto ParticipantDTO) *Participant {
	p := &Participant{
		ID:          dto.ID,
		DisplayName: dto.DisplayName,
		Role:        dto.Role,
		HearingRole: dto.HearingRole,
		Status:      dto.Status,
	}
	if dto.InterpreterRoom != nil {
		p.Room = &RoomSummary{
			ID:     dto.InterpreterRoom.ID,
			Label:  dto.InterpreterRoom.Label,
			Locked: dto.InterpreterRoom.Locked,
		}
	}
	return p
}

func EndpointFromDTO(dto EndpointDTO) *Participant {
	return &Participant{
		ID:                dto.ID,
		DisplayName:       dto.DisplayName,
		Status:            dto.Status,
		DefenceAdvocateID: dto.DefenceAdvocate,
		IsEndpoint:        true,
	}
}

// VideoControlStatusDTO is the wire shape of one participant's persisted
// control state. Remote mute is deliberately absent: the backend does not
// persist it independently and reports it as muted on every load.
type VideoControlStatusDTO struct {
	IsSpotlighted     bool `json:"is_spotlighted"`
	IsLocalAudioMuted bool `json:"is_local_audio_muted"`
	IsLocalVideoMuted bool `json:"is_local_video_muted"`
}

type ConferenceVideoControlStatuses struct {
	ParticipantStates map[string]VideoControlStatusDTO `json:"participant_states"`
}

type SetVideoControlStatusesRequest struct {
	ParticipantIDToUpdatedStatus map[string]VideoControlStatusDTO `json:"participant_id_to_updated_status"`
}

// ClientSettings is the backend-owned client configuration; the roster core
// only needs the audio recorder bot's expected display name.
type ClientSettings struct {
	RecorderDisplayName string `json:"recorder_display_name"`
}
