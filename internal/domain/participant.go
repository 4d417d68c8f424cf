package domain

type ParticipantStatus string

const (
	StatusNotSignedIn    ParticipantStatus = "not_signed_in"
	StatusJoining        ParticipantStatus = "joining"
	StatusAvailable      ParticipantStatus = "available"
	StatusInHearing      ParticipantStatus = "in_hearing"
	StatusInConsultation ParticipantStatus = "in_consultation"
	StatusDisconnected   ParticipantStatus = "disconnected"
)

type Role string

const (
	RoleJudge                Role = "judge"
	RoleIndividual           Role = "individual"
	RoleRepresentative       Role = "representative"
	RoleJudicialOfficeHolder Role = "judicial_office_holder"
	RoleStaffMember          Role = "staff_member"
	RoleQuickLinkObserver    Role = "quick_link_observer"
)

type HearingRole string

const (
	HearingRoleInterpreter      HearingRole = "interpreter"
	HearingRolePanelMember      HearingRole = "panel_member"
	HearingRoleLitigantInPerson HearingRole = "litigant_in_person"
	HearingRoleWitness          HearingRole = "witness"
	HearingRoleObserver         HearingRole = "observer"
)

// RoomSummary is the backend's reference to a shared virtual meeting room.
type RoomSummary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Locked bool   `json:"locked"`
}

// Participant is one human, judicial officer or system actor in a
// conference. Video endpoints share the same shape (IsEndpoint true, no
// role/hearing role) so the roster can expose a single unioned list.
type Participant struct {
	ID                string            `json:"id"`
	DisplayName       string            `json:"display_name"`
	Role              Role              `json:"role,omitempty"`
	HearingRole       HearingRole       `json:"hearing_role,omitempty"`
	Status            ParticipantStatus `json:"status"`
	Room              *RoomSummary      `json:"room,omitempty"`
	DefenceAdvocateID string            `json:"defence_advocate_id,omitempty"`
	IsEndpoint        bool              `json:"is_endpoint"`

	// PexipID is the media-mixer call id. Empty until the participant's
	// media connects; may be reassigned when the leg reconnects.
	PexipID string `json:"pexip_id,omitempty"`

	IsSpotlighted     bool `json:"is_spotlighted"`
	IsRemoteMuted     bool `json:"is_remote_muted"`
	IsHandRaised      bool `json:"is_hand_raised"`
	IsLocalAudioMuted bool `json:"is_local_audio_muted"`
	IsLocalVideoMuted bool `json:"is_local_video_muted"`
}

func (p *Participant) IsGrouped() bool {
	return p.Room != nil
}
