package domain

// ControlFlags is the per-participant (or per-VMR) video-control state.
// Absence of a record means "unknown/default", never an error.
type ControlFlags struct {
	IsSpotlighted     bool `json:"is_spotlighted"`
	IsRemoteMuted     bool `json:"is_remote_muted"`
	IsLocalAudioMuted bool `json:"is_local_audio_muted"`
	IsLocalVideoMuted bool `json:"is_local_video_muted"`
}

// ConferenceControlState maps participant-or-VMR ids to control flags for
// one conference.
type ConferenceControlState struct {
	ParticipantStates map[string]*ControlFlags `json:"participant_states"`
}

func NewConferenceControlState() *ConferenceControlState {
	return &ConferenceControlState{
		ParticipantStates: make(map[string]*ControlFlags),
	}
}

// Flags returns the stored flags for id, or zero-value defaults if none.
func (s *ConferenceControlState) Flags(id string) ControlFlags {
	if s == nil || s.ParticipantStates == nil {
		return ControlFlags{}
	}
	if flags, ok := s.ParticipantStates[id]; ok && flags != nil {
		return *flags
	}
	return ControlFlags{}
}

// Ensure returns the mutable flags record for id, creating it if absent.
func (s *ConferenceControlState) Ensure(id string) *ControlFlags {
	if s.ParticipantStates == nil {
		s.ParticipantStates = make(map[string]*ControlFlags)
	}
	flags, ok := s.ParticipantStates[id]
	if !ok {
		flags = &ControlFlags{}
		s.ParticipantStates[id] = flags
	}
	return flags
}
