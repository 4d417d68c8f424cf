package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"video_hearings/internal/domain"
	"video_hearings/internal/repository"
	"video_hearings/pkg/events"
	"video_hearings/pkg/logger"
)

// RosterService owns the canonical participant and endpoint lists for the
// current conference, keeps them synchronized with backend push events and
// media-engine call-leg events, and exposes derived views (VMRs, pexip-id
// lookups) plus typed change notifications.
type RosterService interface {
	Participants() []*domain.Participant
	VirtualMeetingRooms() []*domain.VirtualMeetingRoom
	GetPexipIDForParticipant(id string) string

	OnParticipantsLoaded() *events.Stream[[]*domain.Participant]
	OnParticipantsUpdated() *events.Stream[[]*domain.Participant]
	OnParticipantStatusChanged() *events.Stream[*domain.Participant]
	OnParticipantConnectedToPexip() *events.Stream[*domain.Participant]
	OnParticipantPexipIDChanged() *events.Stream[*domain.Participant]
	OnParticipantSpotlightChanged() *events.Stream[*domain.Participant]
	OnParticipantRemoteMuteChanged() *events.Stream[*domain.Participant]
	OnParticipantHandRaisedChanged() *events.Stream[*domain.Participant]
	OnVMRConnectedToPexip() *events.Stream[*domain.VirtualMeetingRoom]
	OnVMRPexipIDChanged() *events.Stream[*domain.VirtualMeetingRoom]

	Close()
}

type rosterService struct {
	api    VideoAPIClient
	states repository.ConferenceStateRepository
	engine CallEngine
	hub    EventHub
	log    logger.Logger

	mu           sync.Mutex
	conferenceID string
	participants []*domain.Participant // non-endpoints
	endpoints    []*domain.Participant
	vmrs         []*domain.VirtualMeetingRoom
	byID         map[string]*domain.Participant
	vmrByID      map[string]*domain.VirtualMeetingRoom
	confUnsubs   []func()

	participantsLoaded        *events.Stream[[]*domain.Participant]
	participantsUpdated       *events.Stream[[]*domain.Participant]
	statusChanged             *events.Stream[*domain.Participant]
	participantConnected      *events.Stream[*domain.Participant]
	participantPexipIDChanged *events.Stream[*domain.Participant]
	spotlightChanged          *events.Stream[*domain.Participant]
	remoteMuteChanged         *events.Stream[*domain.Participant]
	handRaisedChanged         *events.Stream[*domain.Participant]
	vmrConnected              *events.Stream[*domain.VirtualMeetingRoom]
	vmrPexipIDChanged         *events.Stream[*domain.VirtualMeetingRoom]

	closeOnce sync.Once
	baseSubs  []func()
}

func NewRosterService(confCtx ConferenceContext, api VideoAPIClient, states repository.ConferenceStateRepository, engine CallEngine, hub EventHub, log logger.Logger) RosterService {
	r := &rosterService{
		api:     api,
		states:  states,
		engine:  engine,
		hub:     hub,
		log:     log,
		byID:    make(map[string]*domain.Participant),
		vmrByID: make(map[string]*domain.VirtualMeetingRoom),

		participantsLoaded:        events.NewStream[[]*domain.Participant](),
		participantsUpdated:       events.NewStream[[]*domain.Participant](),
		statusChanged:             events.NewStream[*domain.Participant](),
		participantConnected:      events.NewStream[*domain.Participant](),
		participantPexipIDChanged: events.NewStream[*domain.Participant](),
		spotlightChanged:          events.NewStream[*domain.Participant](),
		remoteMuteChanged:         events.NewStream[*domain.Participant](),
		handRaisedChanged:         events.NewStream[*domain.Participant](),
		vmrConnected:              events.NewStream[*domain.VirtualMeetingRoom](),
		vmrPexipIDChanged:         events.NewStream[*domain.VirtualMeetingRoom](),
	}

	confSub := confCtx.OnCurrentConferenceChanged().Subscribe()
	go func() {
		for conference := range confSub.C {
			r.handleConferenceChanged(conference)
		}
	}()

	// engine subscription lives for the service's lifetime, not per
	// conference
	engineSub := engine.OnParticipantUpdated().Subscribe()
	go func() {
		for update := range engineSub.C {
			r.handleEngineParticipantUpdated(update)
		}
	}()

	r.baseSubs = []func(){confSub.Unsubscribe, engineSub.Unsubscribe}
	return r
}

// normalizeID brings raw-string and structured identifier forms to one
// canonical representation before lookup.
func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return id
}

// -- conference lifecycle ---------------------------------------------------

func (r *rosterService) handleConferenceChanged(conference *domain.Conference) {
	r.mu.Lock()
	unsubs := r.confUnsubs
	r.confUnsubs = nil
	r.participants = nil
	r.endpoints = nil
	r.rebuildLocked()

	if conference == nil {
		r.conferenceID = ""
		r.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}
		r.log.Warn("No current conference, roster left empty")
		return
	}

	r.conferenceID = conference.ID
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	// the two fetches are independent and unordered; each applies a full
	// replace when it resolves
	go r.loadParticipants(conference.ID)
	go r.loadEndpoints(conference.ID)

	statusSub := r.hub.OnParticipantStatusChanged().Subscribe()
	participantsSub := r.hub.OnParticipantsUpdated().Subscribe()
	endpointsSub := r.hub.OnEndpointsUpdated().Subscribe()

	r.mu.Lock()
	r.confUnsubs = []func(){statusSub.Unsubscribe, participantsSub.Unsubscribe, endpointsSub.Unsubscribe}
	r.mu.Unlock()

	go func() {
		for msg := range statusSub.C {
			r.handleStatusMessage(msg)
		}
	}()
	go func() {
		for msg := range participantsSub.C {
			r.handleParticipantsUpdated(msg)
		}
	}()
	go func() {
		for msg := range endpointsSub.C {
			r.handleEndpointsUpdated(msg)
		}
	}()
}

func (r *rosterService) loadParticipants(conferenceID string) {
	ctx := context.Background()

	dtos, err := r.api.GetParticipantsForConference(ctx, conferenceID)
	if err != nil {
		r.log.Error("Failed to load participants", "conference_id", conferenceID, "error", err)
		return
	}

	state, err := r.states.LoadHearingStateForConference(ctx, conferenceID)
	if err != nil {
		r.log.Error("Failed to load video control state", "conference_id", conferenceID, "error", err)
		state = domain.NewConferenceControlState()
	}

	list := make([]*domain.Participant, 0, len(dtos))
	for _, dto := range dtos {
		list = append(list, domain.ParticipantFromDTO(dto))
	}

	r.mu.Lock()
	if r.conferenceID != conferenceID {
		// stale fetch from a previous conference
		r.mu.Unlock()
		return
	}
	r.participants = list
	r.rebuildLocked()
	r.restoreControlStateLocked(state)
	snapshot := r.allParticipantsLocked()
	r.mu.Unlock()

	r.log.Info("Participants loaded", "conference_id", conferenceID, "count", len(list))
	r.participantsLoaded.Emit(snapshot)
}

func (r *rosterService) loadEndpoints(conferenceID string) {
	dtos, err := r.api.GetEndpointsForConference(context.Background(), conferenceID)
	if err != nil {
		r.log.Error("Failed to load endpoints", "conference_id", conferenceID, "error", err)
		return
	}

	list := make([]*domain.Participant, 0, len(dtos))
	for _, dto := range dtos {
		list = append(list, domain.EndpointFromDTO(dto))
	}

	r.mu.Lock()
	if r.conferenceID != conferenceID {
		r.mu.Unlock()
		return
	}
	r.endpoints = list
	r.rebuildLocked()
	snapshot := r.allParticipantsLocked()
	r.mu.Unlock()

	r.log.Info("Endpoints loaded", "conference_id", conferenceID, "count", len(list))
	r.participantsLoaded.Emit(snapshot)
}

// rebuildLocked recomputes the id index and the VMR grouping from the
// participants' room references. VMRs are never partially mutated; pexip
// ids and flags survive a rebuild through the previous instance.
func (r *rosterService) rebuildLocked() {
	r.byID = make(map[string]*domain.Participant, len(r.participants)+len(r.endpoints))
	for _, p := range r.participants {
		r.byID[normalizeID(p.ID)] = p
	}
	for _, e := range r.endpoints {
		r.byID[normalizeID(e.ID)] = e
	}

	previous := r.vmrByID
	r.vmrs = nil
	r.vmrByID = make(map[string]*domain.VirtualMeetingRoom)
	for _, p := range r.participants {
		if p.Room == nil {
			continue
		}
		id := normalizeID(p.Room.ID)
		vmr, ok := r.vmrByID[id]
		if !ok {
			vmr = &domain.VirtualMeetingRoom{
				ID:     p.Room.ID,
				Label:  p.Room.Label,
				Locked: p.Room.Locked,
			}
			if prev, existed := previous[id]; existed {
				vmr.PexipID = prev.PexipID
				vmr.IsSpotlighted = prev.IsSpotlighted
				vmr.IsRemoteMuted = prev.IsRemoteMuted
			}
			r.vmrByID[id] = vmr
			r.vmrs = append(r.vmrs, vmr)
		}
		vmr.MemberIDs = append(vmr.MemberIDs, p.ID)
	}
}

// restoreControlStateLocked fans persisted spotlight/mute state onto the
// in-memory flags: VMR state onto the room and its members, per-participant
// state onto ungrouped participants.
func (r *rosterService) restoreControlStateLocked(state *domain.ConferenceControlState) {
	for _, vmr := range r.vmrs {
		flags := state.Flags(normalizeID(vmr.ID))
		vmr.IsSpotlighted = flags.IsSpotlighted
		vmr.IsRemoteMuted = flags.IsRemoteMuted
		for _, memberID := range vmr.MemberIDs {
			if member, ok := r.byID[normalizeID(memberID)]; ok {
				member.IsSpotlighted = flags.IsSpotlighted
				member.IsRemoteMuted = flags.IsRemoteMuted
			}
		}
	}
	for _, p := range r.participants {
		if p.IsGrouped() {
			continue
		}
		flags := state.Flags(normalizeID(p.ID))
		p.IsSpotlighted = flags.IsSpotlighted
		p.IsRemoteMuted = flags.IsRemoteMuted
		p.IsLocalAudioMuted = flags.IsLocalAudioMuted
		p.IsLocalVideoMuted = flags.IsLocalVideoMuted
	}
}

// -- backend push events ----------------------------------------------------

func (r *rosterService) handleStatusMessage(msg domain.ParticipantStatusMessage) {
	r.mu.Lock()
	if msg.ConferenceID != r.conferenceID {
		r.mu.Unlock()
		r.log.Debug("Ignoring status message for another conference", "conference_id", msg.ConferenceID)
		return
	}

	p, ok := r.byID[normalizeID(msg.ParticipantID)]
	if !ok || p.Status == msg.Status {
		r.mu.Unlock()
		return
	}
	p.Status = msg.Status
	r.mu.Unlock()

	r.statusChanged.Emit(p)
}

func (r *rosterService) handleParticipantsUpdated(msg domain.ParticipantsUpdatedMessage) {
	r.mu.Lock()
	if msg.ConferenceID != r.conferenceID {
		r.mu.Unlock()
		r.log.Debug("Ignoring participants update for another conference", "conference_id", msg.ConferenceID)
		return
	}

	list := make([]*domain.Participant, 0, len(msg.Participants))
	for _, dto := range msg.Participants {
		list = append(list, domain.ParticipantFromDTO(dto))
	}
	r.participants = list
	r.rebuildLocked()
	snapshot := r.allParticipantsLocked()
	r.mu.Unlock()

	r.participantsUpdated.Emit(snapshot)
}

// handleEndpointsUpdated applies a partial delta; the hub may deliver one
// message per changed endpoint and repeated application must converge.
func (r *rosterService) handleEndpointsUpdated(msg domain.EndpointsUpdatedMessage) {
	r.mu.Lock()
	if msg.ConferenceID != r.conferenceID {
		r.mu.Unlock()
		r.log.Debug("Ignoring endpoints update for another conference", "conference_id", msg.ConferenceID)
		return
	}

	for _, dto := range msg.Update.NewEndpoints {
		if _, exists := r.byID[normalizeID(dto.ID)]; exists {
			continue
		}
		endpoint := domain.EndpointFromDTO(dto)
		r.endpoints = append(r.endpoints, endpoint)
		r.byID[normalizeID(dto.ID)] = endpoint
	}

	for _, dto := range msg.Update.ExistingEndpoints {
		for i, endpoint := range r.endpoints {
			if normalizeID(endpoint.ID) == normalizeID(dto.ID) {
				r.endpoints[i] = domain.EndpointFromDTO(dto)
				break
			}
		}
	}

	for _, removedID := range msg.Update.RemovedEndpoints {
		id := normalizeID(removedID)
		for i, endpoint := range r.endpoints {
			if normalizeID(endpoint.ID) == id {
				r.endpoints = append(r.endpoints[:i], r.endpoints[i+1:]...)
				break
			}
		}
	}

	r.rebuildLocked()
	snapshot := r.allParticipantsLocked()
	r.mu.Unlock()

	r.participantsUpdated.Emit(snapshot)
}

// -- media engine events ----------------------------------------------------

func (r *rosterService) handleEngineParticipantUpdated(update domain.ParticipantUpdated) {
	if update.PexipDisplayName == "" {
		// malformed or irrelevant engine update
		return
	}
	id := normalizeID(update.TaggedID())

	r.mu.Lock()
	if vmr, ok := r.vmrByID[id]; ok {
		r.applyVMRUpdateLocked(vmr, update)
		return
	}
	if p, ok := r.byID[id]; ok {
		r.applyParticipantUpdateLocked(p, update)
		return
	}
	r.mu.Unlock()
}

// applyVMRUpdateLocked is entered holding the mutex and releases it before
// emitting.
func (r *rosterService) applyVMRUpdateLocked(vmr *domain.VirtualMeetingRoom, update domain.ParticipantUpdated) {
	firstID := vmr.PexipID == ""
	vmr.PexipID = update.UUID

	if firstID {
		// connection bootstrap is silent on flags
		r.mu.Unlock()
		r.vmrConnected.Emit(vmr)
		return
	}

	members := make([]*domain.Participant, 0, len(vmr.MemberIDs))
	for _, memberID := range vmr.MemberIDs {
		if member, ok := r.byID[normalizeID(memberID)]; ok {
			member.PexipID = update.UUID
			members = append(members, member)
		}
	}
	r.mu.Unlock()

	r.vmrPexipIDChanged.Emit(vmr)
	for _, member := range members {
		r.participantPexipIDChanged.Emit(member)
	}
}

func (r *rosterService) applyParticipantUpdateLocked(p *domain.Participant, update domain.ParticipantUpdated) {
	firstID := p.PexipID == ""
	p.PexipID = update.UUID

	if firstID {
		r.mu.Unlock()
		r.participantConnected.Emit(p)
		return
	}

	// each flag comparison is independent; an update may raise any subset
	spotChanged := p.IsSpotlighted != update.IsSpotlighted
	muteChanged := p.IsRemoteMuted != update.IsRemoteMuted
	handChanged := p.IsHandRaised != update.HandRaised
	p.IsSpotlighted = update.IsSpotlighted
	p.IsRemoteMuted = update.IsRemoteMuted
	p.IsHandRaised = update.HandRaised
	r.mu.Unlock()

	r.participantPexipIDChanged.Emit(p)
	if spotChanged {
		r.spotlightChanged.Emit(p)
	}
	if muteChanged {
		r.remoteMuteChanged.Emit(p)
	}
	if handChanged {
		r.handRaisedChanged.Emit(p)
	}
}

// -- queries ----------------------------------------------------------------

func (r *rosterService) allParticipantsLocked() []*domain.Participant {
	all := make([]*domain.Participant, 0, len(r.participants)+len(r.endpoints))
	all = append(all, r.participants...)
	all = append(all, r.endpoints...)
	return all
}

// Participants returns non-endpoint participants concatenated with
// endpoints, recomputed on every call.
func (r *rosterService) Participants() []*domain.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allParticipantsLocked()
}

func (r *rosterService) VirtualMeetingRooms() []*domain.VirtualMeetingRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]*domain.VirtualMeetingRoom, len(r.vmrs))
	copy(rooms, r.vmrs)
	return rooms
}

// GetPexipIDForParticipant returns the participant's current call id, or ""
// when the participant is unknown or not yet connected.
func (r *rosterService) GetPexipIDForParticipant(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[normalizeID(id)]; ok {
		return p.PexipID
	}
	return ""
}

// -- event streams ----------------------------------------------------------

func (r *rosterService) OnParticipantsLoaded() *events.Stream[[]*domain.Participant] {
	return r.participantsLoaded
}

func (r *rosterService) OnParticipantsUpdated() *events.Stream[[]*domain.Participant] {
	return r.participantsUpdated
}

func (r *rosterService) OnParticipantStatusChanged() *events.Stream[*domain.Participant] {
	return r.statusChanged
}

func (r *rosterService) OnParticipantConnectedToPexip() *events.Stream[*domain.Participant] {
	return r.participantConnected
}

func (r *rosterService) OnParticipantPexipIDChanged() *events.Stream[*domain.Participant] {
	return r.participantPexipIDChanged
}

func (r *rosterService) OnParticipantSpotlightChanged() *events.Stream[*domain.Participant] {
	return r.spotlightChanged
}

func (r *rosterService) OnParticipantRemoteMuteChanged() *events.Stream[*domain.Participant] {
	return r.remoteMuteChanged
}

func (r *rosterService) OnParticipantHandRaisedChanged() *events.Stream[*domain.Participant] {
	return r.handRaisedChanged
}

func (r *rosterService) OnVMRConnectedToPexip() *events.Stream[*domain.VirtualMeetingRoom] {
	return r.vmrConnected
}

func (r *rosterService) OnVMRPexipIDChanged() *events.Stream[*domain.VirtualMeetingRoom] {
	return r.vmrPexipIDChanged
}

func (r *rosterService) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		unsubs := append([]func(){}, r.confUnsubs...)
		r.confUnsubs = nil
		r.mu.Unlock()

		for _, unsub := range unsubs {
			unsub()
		}
		for _, unsub := range r.baseSubs {
			unsub()
		}
	})
}
