package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"video_hearings/internal/domain"
	"video_hearings/pkg/events"
)

// waitEvent receives one value from an event subscription or fails the test.
func waitEvent[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func requireNoEvent[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("unexpected event received")
	case <-time.After(100 * time.Millisecond):
	}
}

// fakeAPI is an in-memory VideoAPIClient.
type fakeAPI struct {
	mu           sync.Mutex
	conference   *domain.Conference
	participants []domain.ParticipantDTO
	endpoints    []domain.EndpointDTO
	settings     *domain.ClientSettings
	settingsErr  error
	statuses     *domain.ConferenceVideoControlStatuses
}

func (f *fakeAPI) GetConference(ctx context.Context, conferenceID string) (*domain.Conference, error) {
	return f.conference, nil
}

func (f *fakeAPI) GetParticipantsForConference(ctx context.Context, conferenceID string) ([]domain.ParticipantDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants, nil
}

func (f *fakeAPI) GetEndpointsForConference(ctx context.Context, conferenceID string) ([]domain.EndpointDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoints, nil
}

func (f *fakeAPI) GetVideoControlStatusesForConference(ctx context.Context, conferenceID string) (*domain.ConferenceVideoControlStatuses, error) {
	return f.statuses, nil
}

func (f *fakeAPI) SetVideoControlStatusesForConference(ctx context.Context, conferenceID string, req *domain.SetVideoControlStatusesRequest) error {
	return nil
}

func (f *fakeAPI) GetClientSettings(ctx context.Context) (*domain.ClientSettings, error) {
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings, nil
}

// engineCommand records one control command sent to the fake engine.
type engineCommand struct {
	Command       string
	PexipID       string
	Value         bool
	ConferenceID  string
	ParticipantID string
}

// fakeEngine exposes real event streams and records commands.
type fakeEngine struct {
	created *events.Stream[domain.ParticipantUpdated]
	updated *events.Stream[domain.ParticipantUpdated]
	deleted *events.Stream[string]

	mu       sync.Mutex
	commands []engineCommand
	notify   chan engineCommand
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		created: events.NewStream[domain.ParticipantUpdated](),
		updated: events.NewStream[domain.ParticipantUpdated](),
		deleted: events.NewStream[string](),
		notify:  make(chan engineCommand, 16),
	}
}

func (f *fakeEngine) OnParticipantCreated() *events.Stream[domain.ParticipantUpdated] {
	return f.created
}

func (f *fakeEngine) OnParticipantUpdated() *events.Stream[domain.ParticipantUpdated] {
	return f.updated
}

func (f *fakeEngine) OnParticipantDeleted() *events.Stream[string] {
	return f.deleted
}

func (f *fakeEngine) record(cmd engineCommand) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	f.notify <- cmd
}

func (f *fakeEngine) commandCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

func (f *fakeEngine) SpotlightParticipant(ctx context.Context, pexipID string, spotlight bool, conferenceID, participantID string) error {
	f.record(engineCommand{"spotlight", pexipID, spotlight, conferenceID, participantID})
	return nil
}

func (f *fakeEngine) MuteParticipant(ctx context.Context, pexipID string, mute bool, conferenceID, participantID string) error {
	f.record(engineCommand{"mute", pexipID, mute, conferenceID, participantID})
	return nil
}

// fakeHub exposes real push-event streams.
type fakeHub struct {
	statusChanged       *events.Stream[domain.ParticipantStatusMessage]
	participantsUpdated *events.Stream[domain.ParticipantsUpdatedMessage]
	endpointsUpdated    *events.Stream[domain.EndpointsUpdatedMessage]
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		statusChanged:       events.NewStream[domain.ParticipantStatusMessage](),
		participantsUpdated: events.NewStream[domain.ParticipantsUpdatedMessage](),
		endpointsUpdated:    events.NewStream[domain.EndpointsUpdatedMessage](),
	}
}

func (f *fakeHub) OnParticipantStatusChanged() *events.Stream[domain.ParticipantStatusMessage] {
	return f.statusChanged
}

func (f *fakeHub) OnParticipantsUpdated() *events.Stream[domain.ParticipantsUpdatedMessage] {
	return f.participantsUpdated
}

func (f *fakeHub) OnEndpointsUpdated() *events.Stream[domain.EndpointsUpdatedMessage] {
	return f.endpointsUpdated
}

// memStateRepo is an in-memory ConferenceStateRepository.
type memStateRepo struct {
	mu        sync.Mutex
	states    map[string]*domain.ConferenceControlState
	saveCount int
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{states: make(map[string]*domain.ConferenceControlState)}
}

func (m *memStateRepo) SaveHearingStateForConference(ctx context.Context, conferenceID string, state *domain.ConferenceControlState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[conferenceID] = state
	m.saveCount++
	return nil
}

func (m *memStateRepo) LoadHearingStateForConference(ctx context.Context, conferenceID string) (*domain.ConferenceControlState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[conferenceID]; ok {
		return state, nil
	}
	return domain.NewConferenceControlState(), nil
}

func (m *memStateRepo) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

func (m *memStateRepo) setFlags(conferenceID, participantID string, flags domain.ControlFlags) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[conferenceID]
	if !ok {
		state = domain.NewConferenceControlState()
		m.states[conferenceID] = state
	}
	f := flags
	state.ParticipantStates[participantID] = &f
}

// fakeClock hands out controllable timer channels.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	d  time.Duration
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{d: d, ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, timer)
	return timer.ch
}

// fire releases every pending timer with duration d.
func (c *fakeClock) fire(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, timer := range c.timers {
		if timer.d == d {
			select {
			case timer.ch <- c.now.Add(d):
			default:
			}
		}
	}
}

// waitForTimer blocks until a timer with duration d has been requested.
func (c *fakeClock) waitForTimer(t *testing.T, d time.Duration) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		for _, timer := range c.timers {
			if timer.d == d {
				c.mu.Unlock()
				return
			}
		}
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timer for %s was never requested", d)
}
