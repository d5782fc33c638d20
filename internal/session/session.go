// Package session implements the ride session orchestrator: the five-state
// lifecycle machine, the command dispatch loop, and the notification fan-out
// around one passenger's booking-to-arrival journey.
//
// All mutable state lives behind a single mutex; every mutation is applied as
// one atomic read-modify-write. The only suspension points are the classifier
// call, the describer call (owned by the vision controller) and courier
// sends, all of which run outside the lock.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/dispatch"
	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/observability"
	"github.com/example/ride-companion/internal/speech"
	"github.com/example/ride-companion/internal/storage"
)

// Timings groups the lifecycle delays. Production values come from config;
// tests shrink them.
type Timings struct {
	DriverSearch time.Duration // WAITING phase 1: searching for a driver
	DriverAssign time.Duration // WAITING phase 2: driver assigned, ride not started
	ETATick      time.Duration // countdown period while IN_RIDE
}

func DefaultTimings() Timings {
	return Timings{
		DriverSearch: 4 * time.Second,
		DriverAssign: 5 * time.Second,
		ETATick:      10 * time.Second,
	}
}

// EventType labels a session event for downstream consumers.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventMessage      EventType = "message"
	EventRideUpdated  EventType = "ride_updated"
)

// Event is what the session fans out to sinks (websocket hub, Kafka
// publisher). Sinks must not call back into the session.
type Event struct {
	Type    EventType          `json:"type"`
	State   models.AppState    `json:"state"`
	Ride    *models.RideStatus `json:"ride,omitempty"`
	Message *models.Message    `json:"message,omitempty"`
	At      time.Time          `json:"at"`
}

// Sink consumes session events. Sinks run on a dedicated forwarding
// goroutine, outside the session lock, so they may read session snapshots.
type Sink func(Event)

// VisionRequester is raised by the dispatch loop when the classifier asks
// for a scene description. The capture-capable side owns debounce, settle
// delay and the cooldown policy.
type VisionRequester interface {
	Request()
}

// Session owns one passenger's ride lifecycle and conversation. There are no
// module-level singletons; everything mutates through the operations here.
type Session struct {
	mu sync.Mutex

	logger     *slog.Logger
	timings    Timings
	classifier assist.Classifier
	notifier   *dispatch.Policy
	synth      speech.Synthesizer
	haptics    speech.Haptics
	vision     VisionRequester
	prefs      storage.PreferenceStore
	history    storage.HistoryStore
	sinks      []Sink

	state      models.AppState
	profile    models.PassengerProfile
	ride       models.RideStatus
	rideActive bool
	booking    *models.BookingRequest
	suggestion *models.NewRouteSuggestion
	log        []models.Message

	busy            bool
	halfwayNotified bool
	driverAssigned  bool
	emergencyRaised bool
	rideStartedAt   time.Time

	// gen invalidates callbacks scheduled by an earlier lifecycle phase.
	gen         uint64
	searchTimer *time.Timer
	assignTimer *time.Timer
	tickStop    chan struct{}

	events chan Event
	closed bool
}

// Option configures optional collaborators.
type Option func(*Session)

func WithNotifier(p *dispatch.Policy) Option          { return func(s *Session) { s.notifier = p } }
func WithSynthesizer(sy speech.Synthesizer) Option    { return func(s *Session) { s.synth = sy } }
func WithHaptics(h speech.Haptics) Option             { return func(s *Session) { s.haptics = h } }
func WithVision(v VisionRequester) Option             { return func(s *Session) { s.vision = v } }
func WithPreferenceStore(p storage.PreferenceStore) Option {
	return func(s *Session) { s.prefs = p }
}
func WithHistory(h storage.HistoryStore) Option { return func(s *Session) { s.history = h } }
func WithTimings(t Timings) Option              { return func(s *Session) { s.timings = t } }
func WithSink(sink Sink) Option                 { return func(s *Session) { s.sinks = append(s.sinks, sink) } }

// New builds a session in the BOOKING state with the supplied profile.
func New(logger *slog.Logger, classifier assist.Classifier, profile models.PassengerProfile, opts ...Option) *Session {
	s := &Session{
		logger:     logger,
		timings:    DefaultTimings(),
		classifier: classifier,
		synth:      &speech.LogSynthesizer{Logger: logger},
		haptics:    speech.NopHaptics{},
		state:      models.StateBooking,
		profile:    profile,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan Event, 256)
	go s.forwardEvents()
	return s
}

// AddSink registers an event consumer after construction.
func (s *Session) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// AttachVision wires the capture controller after construction (the
// controller needs the session's message-posting hook, so it cannot exist
// before the session does).
func (s *Session) AttachVision(v VisionRequester) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vision = v
}

func (s *Session) forwardEvents() {
	for evt := range s.events {
		s.mu.Lock()
		sinks := append([]Sink(nil), s.sinks...)
		s.mu.Unlock()
		for _, sink := range sinks {
			sink(evt)
		}
	}
}

// State returns the current top-level phase.
func (s *Session) State() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns a copy of the passenger profile.
func (s *Session) Profile() models.PassengerProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfile replaces the profile and persists it (save-on-change).
func (s *Session) SetProfile(p models.PassengerProfile) {
	s.mu.Lock()
	s.profile = p
	store := s.prefs
	s.mu.Unlock()
	if store != nil {
		if err := store.SaveProfile(p); err != nil {
			s.logger.Warn("profile save failed", "error", err)
		}
	}
}

// Book moves BOOKING -> CONFIRMING once the selection validates. Invalid
// input is rejected, never half-applied.
func (s *Session) Book(req models.BookingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, ok := models.RideOptionByID(req.RideOptionID); !ok {
		return fmt.Errorf("unknown ride option %q", req.RideOptionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateBooking {
		return fmt.Errorf("cannot book in state %s", s.state)
	}
	r := req
	s.booking = &r
	s.setStateLocked(models.StateConfirming)
	return nil
}

// CancelBooking moves CONFIRMING -> BOOKING, discarding the selection.
func (s *Session) CancelBooking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateConfirming {
		return fmt.Errorf("cannot cancel in state %s", s.state)
	}
	s.booking = nil
	s.setStateLocked(models.StateBooking)
	return nil
}

// Confirm moves CONFIRMING -> WAITING: the ride is initialized with the
// fixed trip estimate, the halfway latch resets, and the simulated
// driver-found sequence is armed.
func (s *Session) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateConfirming || s.booking == nil {
		return fmt.Errorf("cannot confirm in state %s", s.state)
	}
	ride := models.DefaultRideStatus()
	ride.Pickup = s.booking.Pickup
	ride.Destination = s.booking.Destination
	ride.TotalTripMinutes = models.DefaultTripMinutes
	ride.ETAMinutes = models.DefaultTripMinutes
	ride.Status = models.RideInProgress
	s.ride = ride
	s.rideActive = true
	s.halfwayNotified = false
	s.driverAssigned = false
	s.emergencyRaised = false
	s.suggestion = nil
	s.setStateLocked(models.StateWaiting)
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})

	gen := s.nextGenLocked()
	s.searchTimer = time.AfterFunc(s.timings.DriverSearch, func() { s.driverAssignedAt(gen) })
	s.assignTimer = time.AfterFunc(s.timings.DriverSearch+s.timings.DriverAssign, func() { s.driverFound(gen) })
	return nil
}

// driverAssignedAt ends the searching phase: a driver is assigned but the
// ride has not started yet.
func (s *Session) driverAssignedAt(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != models.StateWaiting {
		return
	}
	s.driverAssigned = true
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})
}

// driverFound fires the WAITING -> IN_RIDE transition: welcome message,
// ride-start notification, and the ETA countdown.
func (s *Session) driverFound(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != models.StateWaiting {
		return
	}
	s.driverAssigned = true
	s.rideStartedAt = time.Now()
	s.setStateLocked(models.StateInRide)
	observability.RidesStarted.Inc()

	s.postAssistantLocked(i18n.Welcome(s.profile.Name, s.ride.Destination), nil)
	if s.notifier != nil {
		profile, ride := s.profile, s.ride
		go s.notifier.RideStarted(context.Background(), profile, ride)
	}

	stop := make(chan struct{})
	s.tickStop = stop
	go s.runCountdown(gen, stop)
}

func (s *Session) runCountdown(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.timings.ETATick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := s.tickETA(gen); done {
				return
			}
		}
	}
}

// tickETA applies one countdown step. Returns true when the ride finished
// and the countdown should stop.
func (s *Session) tickETA(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != models.StateInRide {
		return true
	}
	if s.ride.Status != models.RideInProgress {
		// paused while a reroute is pending or in emergency
		return false
	}
	if s.ride.ETAMinutes > 0 {
		s.ride.ETAMinutes--
	}
	if s.ride.ETAMinutes <= 0 {
		s.ride.ETAMinutes = 0
		s.finishRideLocked()
		return true
	}
	s.checkHalfwayLocked()
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})
	return false
}

// checkHalfwayLocked fires the single mid-ride caregiver update. The latch
// resets only at ride confirmation.
func (s *Session) checkHalfwayLocked() {
	if s.halfwayNotified || s.state != models.StateInRide {
		return
	}
	if s.ride.ETAMinutes <= 0 || s.ride.ETAMinutes > s.ride.TotalTripMinutes/2 {
		return
	}
	s.halfwayNotified = true
	if s.notifier != nil {
		profile, eta := s.profile, s.ride.ETAMinutes
		go s.notifier.Halfway(context.Background(), profile, eta)
	}
}

// finishRideLocked: IN_RIDE -> FINISHED atomically with the final tick.
func (s *Session) finishRideLocked() {
	s.ride.Status = models.RideFinished
	s.setStateLocked(models.StateFinished)
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})
	observability.RidesFinished.Inc()

	if s.notifier != nil {
		profile, ride := s.profile, s.ride
		go s.notifier.Arrived(context.Background(), profile, ride)
	}
	if s.history != nil {
		rec := models.RideRecord{
			ID:               uuid.NewString(),
			PassengerName:    s.profile.Name,
			Pickup:           s.ride.Pickup,
			Destination:      s.ride.Destination,
			TotalTripMinutes: s.ride.TotalTripMinutes,
			Emergency:        s.emergencyRaised,
			StartedAt:        s.rideStartedAt,
			FinishedAt:       time.Now(),
		}
		h := s.history
		go func() {
			if err := h.SaveRide(context.Background(), rec); err != nil {
				s.logger.Warn("ride archive failed", "error", err)
			}
		}()
	}
}

// NewBooking moves FINISHED -> BOOKING and clears the conversation log.
func (s *Session) NewBooking() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != models.StateFinished {
		return fmt.Errorf("cannot start a new booking in state %s", s.state)
	}
	s.stopTimersLocked()
	s.log = nil
	s.booking = nil
	s.suggestion = nil
	s.rideActive = false
	s.ride = models.RideStatus{}
	s.setStateLocked(models.StateBooking)
	return nil
}

// Close tears down all timers and the event forwarder. Late callbacks from a
// closed session are dropped by the generation guard.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

func (s *Session) stopTimersLocked() {
	s.gen++
	if s.searchTimer != nil {
		s.searchTimer.Stop()
		s.searchTimer = nil
	}
	if s.assignTimer != nil {
		s.assignTimer.Stop()
		s.assignTimer = nil
	}
	if s.tickStop != nil {
		close(s.tickStop)
		s.tickStop = nil
	}
}

func (s *Session) nextGenLocked() uint64 {
	s.gen++
	return s.gen
}

func (s *Session) setStateLocked(next models.AppState) {
	if s.state == next {
		return
	}
	s.logger.Info("session state", "from", s.state, "to", next)
	s.state = next
	s.emitLocked(Event{Type: EventStateChanged})
}

func (s *Session) rideCopyLocked() *models.RideStatus {
	r := s.ride
	return &r
}

func (s *Session) emitLocked(evt Event) {
	if s.closed {
		return
	}
	evt.State = s.state
	evt.At = time.Now()
	select {
	case s.events <- evt:
	default:
		// fan-out is best-effort; a stalled consumer must not block the
		// session's single-writer path
		s.logger.Warn("event dropped, sink backlog full", "type", evt.Type)
	}
}

// appendMessageLocked appends to the append-only conversation log.
func (s *Session) appendMessageLocked(m models.Message) {
	s.log = append(s.log, m)
	mc := m
	s.emitLocked(Event{Type: EventMessage, Message: &mc})
}

// postAssistantLocked appends a locally generated assistant message and
// plays the voice/haptic cues the passenger has enabled.
func (s *Session) postAssistantLocked(text string, extra *models.AssistantResponse) {
	data := extra
	if data == nil {
		data = &models.AssistantResponse{Intent: models.IntentInfo, ResponseText: text}
	}
	s.appendMessageLocked(models.Message{
		ID:            uuid.NewString(),
		Sender:        models.SenderAssistant,
		Text:          text,
		Timestamp:     time.Now(),
		AssistantData: data,
	})
	prefs := s.profile.Preferences
	if prefs.VoiceOutput {
		s.synth.Speak(text, prefs.Language, prefs.VoiceSpeed)
	}
	if prefs.HapticFeedback {
		s.haptics.TriplePulse()
	}
}

// PostAssistantMessage lets collaborators (the vision controller) append an
// assistant message from outside the dispatch loop.
func (s *Session) PostAssistantMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postAssistantLocked(text, nil)
}
