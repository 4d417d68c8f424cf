package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"video_hearings/internal/domain"
	"video_hearings/pkg/logger"
)

type rosterFixture struct {
	api     *fakeAPI
	engine  *fakeEngine
	hub     *fakeHub
	states  *memStateRepo
	confCtx ConferenceContext
	roster  RosterService
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	f := &rosterFixture{
		api:    &fakeAPI{},
		engine: newFakeEngine(),
		hub:    newFakeHub(),
		states: newMemStateRepo(),
	}
	f.confCtx = NewConferenceContext(logger.NewNop())
	f.roster = NewRosterService(f.confCtx, f.api, f.states, f.engine, f.hub, logger.NewNop())
	t.Cleanup(f.roster.Close)
	return f
}

// selectConference switches to the conference and waits for both roster
// fetches to land.
func (f *rosterFixture) selectConference(t *testing.T, conferenceID string) {
	t.Helper()
	loaded := f.roster.OnParticipantsLoaded().Subscribe()
	defer loaded.Unsubscribe()

	f.confCtx.SetCurrentConference(&domain.Conference{ID: conferenceID})
	waitEvent(t, loaded.C)
	waitEvent(t, loaded.C)
}

func TestRosterLoadsParticipantsAndEndpoints(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Role: domain.RoleJudge, Status: domain.StatusAvailable},
		{ID: "p2", DisplayName: "Mr Smith", Role: domain.RoleIndividual, Status: domain.StatusJoining},
	}
	f.api.endpoints = []domain.EndpointDTO{
		{ID: "e1", DisplayName: "Courtroom Device", Status: domain.StatusAvailable},
	}

	f.selectConference(t, "c1")

	participants := f.roster.Participants()
	require.Len(t, participants, 3)
	// non-endpoints first, endpoints appended
	require.Equal(t, "p1", participants[0].ID)
	require.Equal(t, "p2", participants[1].ID)
	require.Equal(t, "e1", participants[2].ID)
	require.True(t, participants[2].IsEndpoint)
}

func TestRosterStatusChangeIsIdempotent(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	changed := f.roster.OnParticipantStatusChanged().Subscribe()
	defer changed.Unsubscribe()

	// same status must not emit
	f.hub.statusChanged.Emit(domain.ParticipantStatusMessage{
		ConferenceID: "c1", ParticipantID: "p1", Status: domain.StatusAvailable,
	})
	requireNoEvent(t, changed.C)

	f.hub.statusChanged.Emit(domain.ParticipantStatusMessage{
		ConferenceID: "c1", ParticipantID: "p1", Status: domain.StatusInHearing,
	})
	p := waitEvent(t, changed.C)
	require.Equal(t, domain.StatusInHearing, p.Status)
}

func TestRosterIgnoresEventsForOtherConferences(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	changed := f.roster.OnParticipantStatusChanged().Subscribe()
	defer changed.Unsubscribe()
	updated := f.roster.OnParticipantsUpdated().Subscribe()
	defer updated.Unsubscribe()

	f.hub.statusChanged.Emit(domain.ParticipantStatusMessage{
		ConferenceID: "other", ParticipantID: "p1", Status: domain.StatusDisconnected,
	})
	f.hub.participantsUpdated.Emit(domain.ParticipantsUpdatedMessage{
		ConferenceID: "other",
		Participants: []domain.ParticipantDTO{{ID: "px", DisplayName: "Intruder"}},
	})

	requireNoEvent(t, changed.C)
	requireNoEvent(t, updated.C)

	participants := f.roster.Participants()
	require.Len(t, participants, 1)
	require.Equal(t, "p1", participants[0].ID)
	require.Equal(t, domain.StatusAvailable, participants[0].Status)
}

func TestRosterFirstPexipIDIsSilentOnFlags(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	connected := f.roster.OnParticipantConnectedToPexip().Subscribe()
	defer connected.Unsubscribe()
	spotlight := f.roster.OnParticipantSpotlightChanged().Subscribe()
	defer spotlight.Unsubscribe()
	hand := f.roster.OnParticipantHandRaisedChanged().Subscribe()
	defer hand.Unsubscribe()

	f.engine.updated.Emit(domain.ParticipantUpdated{
		PexipDisplayName: "HEARING;Judge Fudge;p1",
		UUID:             "uuid-1",
		IsSpotlighted:    true,
		HandRaised:       true,
	})

	p := waitEvent(t, connected.C)
	require.Equal(t, "uuid-1", p.PexipID)
	// connection bootstrap does not touch flags
	require.False(t, p.IsSpotlighted)
	require.False(t, p.IsHandRaised)
	requireNoEvent(t, spotlight.C)
	requireNoEvent(t, hand.C)
}

func TestRosterChangedPexipIDEmitsIndependentFlagEvents(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	connected := f.roster.OnParticipantConnectedToPexip().Subscribe()
	defer connected.Unsubscribe()
	f.engine.updated.Emit(domain.ParticipantUpdated{PexipDisplayName: "HEARING;Judge Fudge;p1", UUID: "uuid-1"})
	waitEvent(t, connected.C)

	idChanged := f.roster.OnParticipantPexipIDChanged().Subscribe()
	defer idChanged.Unsubscribe()
	spotlight := f.roster.OnParticipantSpotlightChanged().Subscribe()
	defer spotlight.Unsubscribe()
	remoteMute := f.roster.OnParticipantRemoteMuteChanged().Subscribe()
	defer remoteMute.Unsubscribe()
	hand := f.roster.OnParticipantHandRaisedChanged().Subscribe()
	defer hand.Unsubscribe()

	f.engine.updated.Emit(domain.ParticipantUpdated{
		PexipDisplayName: "HEARING;Judge Fudge;p1",
		UUID:             "uuid-2",
		IsSpotlighted:    true,
		HandRaised:       true,
	})

	p := waitEvent(t, idChanged.C)
	require.Equal(t, "uuid-2", p.PexipID)
	waitEvent(t, spotlight.C)
	waitEvent(t, hand.C)
	// remote mute did not change
	requireNoEvent(t, remoteMute.C)
}

func TestRosterVMRFanOut(t *testing.T) {
	f := newRosterFixture(t)
	room := &domain.RoomSummaryDTO{ID: "vmr1", Label: "Interpreter Room"}
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Interpreter", Status: domain.StatusAvailable, InterpreterRoom: room},
		{ID: "p2", DisplayName: "Mr Smith", Status: domain.StatusAvailable, InterpreterRoom: room},
	}
	f.selectConference(t, "c1")

	vmrs := f.roster.VirtualMeetingRooms()
	require.Len(t, vmrs, 1)
	require.ElementsMatch(t, []string{"p1", "p2"}, vmrs[0].MemberIDs)

	vmrConnected := f.roster.OnVMRConnectedToPexip().Subscribe()
	defer vmrConnected.Unsubscribe()
	f.engine.updated.Emit(domain.ParticipantUpdated{PexipDisplayName: "HEARING;Interpreter Room;vmr1", UUID: "uuid-1"})
	vmr := waitEvent(t, vmrConnected.C)
	require.Equal(t, "uuid-1", vmr.PexipID)

	vmrChanged := f.roster.OnVMRPexipIDChanged().Subscribe()
	defer vmrChanged.Unsubscribe()
	memberChanged := f.roster.OnParticipantPexipIDChanged().Subscribe()
	defer memberChanged.Unsubscribe()

	f.engine.updated.Emit(domain.ParticipantUpdated{PexipDisplayName: "HEARING;Interpreter Room;vmr1", UUID: "uuid-2"})

	vmr = waitEvent(t, vmrChanged.C)
	require.Equal(t, "uuid-2", vmr.PexipID)
	first := waitEvent(t, memberChanged.C)
	second := waitEvent(t, memberChanged.C)
	require.ElementsMatch(t, []string{"p1", "p2"}, []string{first.ID, second.ID})
	require.Equal(t, "uuid-2", first.PexipID)
	require.Equal(t, "uuid-2", second.PexipID)
}

func TestRosterEndpointDeltaConvergence(t *testing.T) {
	f := newRosterFixture(t)
	f.api.endpoints = []domain.EndpointDTO{
		{ID: "e1", DisplayName: "Courtroom One", Status: domain.StatusAvailable},
		{ID: "e2", DisplayName: "Courtroom Two", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	updated := f.roster.OnParticipantsUpdated().Subscribe()
	defer updated.Unsubscribe()

	// one delta for the new endpoint, then one per pre-existing endpoint
	f.hub.endpointsUpdated.Emit(domain.EndpointsUpdatedMessage{
		ConferenceID: "c1",
		Update: domain.EndpointsUpdateDTO{
			NewEndpoints: []domain.EndpointDTO{{ID: "e3", DisplayName: "Courtroom Three", Status: domain.StatusAvailable}},
		},
	})
	waitEvent(t, updated.C)
	f.hub.endpointsUpdated.Emit(domain.EndpointsUpdatedMessage{
		ConferenceID: "c1",
		Update: domain.EndpointsUpdateDTO{
			ExistingEndpoints: []domain.EndpointDTO{{ID: "e1", DisplayName: "Courtroom One", Status: domain.StatusInHearing}},
		},
	})
	waitEvent(t, updated.C)
	f.hub.endpointsUpdated.Emit(domain.EndpointsUpdatedMessage{
		ConferenceID: "c1",
		Update: domain.EndpointsUpdateDTO{
			ExistingEndpoints: []domain.EndpointDTO{{ID: "e2", DisplayName: "Courtroom Two", Status: domain.StatusInHearing}},
		},
	})
	waitEvent(t, updated.C)

	participants := f.roster.Participants()
	require.Len(t, participants, 3)
	names := make(map[string]string)
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}
	require.Equal(t, "Courtroom One", names["e1"])
	require.Equal(t, "Courtroom Two", names["e2"])
	require.Equal(t, "Courtroom Three", names["e3"])
}

func TestRosterIgnoresUnknownEngineUpdates(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	connected := f.roster.OnParticipantConnectedToPexip().Subscribe()
	defer connected.Unsubscribe()

	// missing display name: malformed, dropped
	f.engine.updated.Emit(domain.ParticipantUpdated{UUID: "uuid-9", IsSpotlighted: true})
	// unknown id: no-op
	f.engine.updated.Emit(domain.ParticipantUpdated{PexipDisplayName: "HEARING;Ghost;nobody", UUID: "uuid-9"})

	requireNoEvent(t, connected.C)
}

func TestRosterRestoresPersistedControlState(t *testing.T) {
	f := newRosterFixture(t)
	room := &domain.RoomSummaryDTO{ID: "vmr1", Label: "Panel Room"}
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
		{ID: "p2", DisplayName: "Panel Member", Status: domain.StatusAvailable, InterpreterRoom: room},
	}
	f.states.setFlags("c1", "p1", domain.ControlFlags{IsSpotlighted: true, IsLocalAudioMuted: true})
	f.states.setFlags("c1", "vmr1", domain.ControlFlags{IsSpotlighted: true, IsRemoteMuted: true})

	f.selectConference(t, "c1")

	var judge, panelist *domain.Participant
	for _, p := range f.roster.Participants() {
		switch p.ID {
		case "p1":
			judge = p
		case "p2":
			panelist = p
		}
	}
	require.NotNil(t, judge)
	require.True(t, judge.IsSpotlighted)
	require.True(t, judge.IsLocalAudioMuted)

	require.NotNil(t, panelist)
	require.True(t, panelist.IsSpotlighted)
	require.True(t, panelist.IsRemoteMuted)

	vmrs := f.roster.VirtualMeetingRooms()
	require.Len(t, vmrs, 1)
	require.True(t, vmrs[0].IsSpotlighted)
	require.True(t, vmrs[0].IsRemoteMuted)
}

func TestRosterClearedConferenceLeavesRosterEmpty(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")
	require.Len(t, f.roster.Participants(), 1)

	f.confCtx.SetCurrentConference(nil)
	require.Eventually(t, func() bool {
		return len(f.roster.Participants()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGetPexipIDForParticipant(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "6FDE2F60-65E9-4846-B1A5-D8AD6F067CA6", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	connected := f.roster.OnParticipantConnectedToPexip().Subscribe()
	defer connected.Unsubscribe()
	f.engine.updated.Emit(domain.ParticipantUpdated{
		PexipDisplayName: "HEARING;Judge Fudge;6fde2f60-65e9-4846-b1a5-d8ad6f067ca6",
		UUID:             "uuid-1",
	})
	waitEvent(t, connected.C)

	// lookup normalizes identifier form
	require.Equal(t, "uuid-1", f.roster.GetPexipIDForParticipant("6FDE2F60-65E9-4846-B1A5-D8AD6F067CA6"))
	require.Equal(t, "", f.roster.GetPexipIDForParticipant("unknown"))
}

func TestRosterFullReplaceOnParticipantsUpdated(t *testing.T) {
	f := newRosterFixture(t)
	f.api.participants = []domain.ParticipantDTO{
		{ID: "p1", DisplayName: "Judge Fudge", Status: domain.StatusAvailable},
	}
	f.selectConference(t, "c1")

	updated := f.roster.OnParticipantsUpdated().Subscribe()
	defer updated.Unsubscribe()

	f.hub.participantsUpdated.Emit(domain.ParticipantsUpdatedMessage{
		ConferenceID: "c1",
		Participants: []domain.ParticipantDTO{
			{ID: "p2", DisplayName: "Ms Jones", Status: domain.StatusJoining},
			{ID: "p3", DisplayName: "Mr Brown", Status: domain.StatusJoining},
		},
	})

	snapshot := waitEvent(t, updated.C)
	require.Len(t, snapshot, 2)
	require.Equal(t, "p2", snapshot[0].ID)
	require.Equal(t, "p3", snapshot[1].ID)
}
