package domain

// VirtualMeetingRoom groups participants that share one media-mixer call leg
// (e.g. interpreter + interpretee, panel members). Members are referenced by
// id; the canonical Participant records stay owned by the roster.
type VirtualMeetingRoom struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Locked bool   `json:"locked"`

	PexipID       string `json:"pexip_id,omitempty"`
	IsSpotlighted bool   `json:"is_spotlighted"`
	IsRemoteMuted bool   `json:"is_remote_muted"`

	MemberIDs []string `json:"member_ids"`
}
