package domain

import "strings"

// PexipDisplayNameSeparator splits the media engine's display name into
// segments; the trailing segment is the stable participant-or-VMR id the
// call leg represents.
const PexipDisplayNameSeparator = ";"

// ParticipantUpdated is the media engine's participant created/updated
// event. Legs are identified only by display name and an ephemeral uuid.
type ParticipantUpdated struct {
	PexipDisplayName string `json:"pexip_display_name"`
	UUID             string `json:"uuid"`
	IsSpotlighted    bool   `json:"is_spotlighted"`
	IsRemoteMuted    bool   `json:"is_remote_muted"`
	HandRaised       bool   `json:"hand_raised"`
	IsVideoMuted     bool   `json:"is_video_muted"`
	Protocol         string `json:"protocol,omitempty"`
	Role             string `json:"role,omitempty"`
}

// TaggedID extracts the stable id from the display name, or "" if the name
// is empty or carries no separator-delimited id.
func (p ParticipantUpdated) TaggedID() string {
	if p.PexipDisplayName == "" {
		return ""
	}
	segments := strings.Split(p.PexipDisplayName, PexipDisplayNameSeparator)
	return segments[len(segments)-1]
}

// ParticipantStatusMessage is the backend hub's status push event.
type ParticipantStatusMessage struct {
	ConferenceID  string            `json:"conference_id"`
	ParticipantID string            `json:"participant_id"`
	Status        ParticipantStatus `json:"status"`
}

// ParticipantsUpdatedMessage replaces the full non-endpoint participant
// list for a conference.
type ParticipantsUpdatedMessage struct {
	ConferenceID string           `json:"conference_id"`
	Participants []ParticipantDTO `json:"participants"`
}

// EndpointsUpdateDTO is a partial delta; the hub may deliver one message
// per changed endpoint.
type EndpointsUpdateDTO struct {
	ExistingEndpoints []EndpointDTO `json:"existing_endpoints"`
	RemovedEndpoints  []string      `json:"removed_endpoints"`
	NewEndpoints      []EndpointDTO `json:"new_endpoints"`
}

type EndpointsUpdatedMessage struct {
	ConferenceID string             `json:"conference_id"`
	Update       EndpointsUpdateDTO `json:"update"`
}
