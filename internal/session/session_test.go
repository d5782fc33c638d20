package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/ride-companion/internal/dispatch"
	"github.com/example/ride-companion/internal/logging"
	"github.com/example/ride-companion/internal/models"
)

type scriptedClassifier struct {
	mu    sync.Mutex
	resp  models.AssistantResponse
	err   error
	block chan struct{}
	calls int
}

func (c *scriptedClassifier) Classify(ctx context.Context, utterance string, profile models.PassengerProfile, ride models.RideStatus) (models.AssistantResponse, error) {
	c.mu.Lock()
	c.calls++
	block := c.block
	resp, err := c.resp, c.err
	c.mu.Unlock()
	if block != nil {
		<-block
	}
	return resp, err
}

func (c *scriptedClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingCourier struct {
	mu    sync.Mutex
	sends []string
}

func (c *recordingCourier) Send(_ context.Context, recipient, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, message)
	return nil
}

func (c *recordingCourier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

func (c *recordingCourier) countContaining(sub string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.sends {
		if strings.Contains(m, sub) {
			n++
		}
	}
	return n
}

func profileWithCaregiver() models.PassengerProfile {
	p := models.DefaultProfile()
	p.CaregiverContact = "+15550100"
	return p
}

func fastTimings() Timings {
	return Timings{
		DriverSearch: time.Millisecond,
		DriverAssign: time.Millisecond,
		// manual ticks in tests; the background ticker must stay quiet
		ETATick: time.Hour,
	}
}

func newTestSession(t *testing.T, profile models.PassengerProfile, courier *recordingCourier) (*Session, *scriptedClassifier) {
	t.Helper()
	logger := logging.Discard()
	cls := &scriptedClassifier{resp: models.AssistantResponse{Intent: models.IntentInfo, ResponseText: "noted"}}
	opts := []Option{WithTimings(fastTimings())}
	if courier != nil {
		opts = append(opts, WithNotifier(dispatch.NewPolicy(courier, "", logger)))
	}
	s := New(logger, cls, profile, opts...)
	t.Cleanup(s.Close)
	return s, cls
}

// advance applies n countdown ticks synchronously, stopping early if the
// ride finishes.
func advance(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		gen := s.gen
		s.mu.Unlock()
		if s.tickETA(gen) {
			return
		}
	}
}

func bookAndStart(t *testing.T, s *Session) {
	t.Helper()
	require.NoError(t, s.Book(models.BookingRequest{RideOptionID: "standard", Pickup: "123 Main St", Destination: "City Hall"}))
	require.Equal(t, models.StateConfirming, s.State())
	require.NoError(t, s.Confirm())
	require.Eventually(t, func() bool { return s.State() == models.StateInRide }, time.Second, 2*time.Millisecond)
}

func TestBookingValidation(t *testing.T) {
	s, _ := newTestSession(t, models.DefaultProfile(), nil)

	err := s.Book(models.BookingRequest{Pickup: "A"})
	require.Error(t, err)
	require.Equal(t, models.StateBooking, s.State())

	err = s.Book(models.BookingRequest{RideOptionID: "hoverboard", Pickup: "A", Destination: "B"})
	require.Error(t, err)
	require.Equal(t, models.StateBooking, s.State())
}

func TestCancelBookingReturnsToBooking(t *testing.T) {
	s, _ := newTestSession(t, models.DefaultProfile(), nil)
	require.NoError(t, s.Book(models.BookingRequest{RideOptionID: "standard", Pickup: "A", Destination: "B"}))
	require.NoError(t, s.CancelBooking())
	require.Equal(t, models.StateBooking, s.State())
	require.Nil(t, s.Snapshot().Booking)
}

func TestDriverFoundStartsRide(t *testing.T) {
	courier := &recordingCourier{}
	s, _ := newTestSession(t, profileWithCaregiver(), courier)
	bookAndStart(t, s)

	snap := s.Snapshot()
	require.True(t, snap.RideActive)
	require.Equal(t, models.RideInProgress, snap.Ride.Status)
	require.Equal(t, models.DefaultTripMinutes, snap.Ride.TotalTripMinutes)
	require.Equal(t, models.DefaultTripMinutes, snap.Ride.ETAMinutes)
	require.Equal(t, "City Hall", snap.Ride.Destination)

	require.Len(t, snap.Messages, 1)
	welcome := snap.Messages[0]
	require.Equal(t, models.SenderAssistant, welcome.Sender)
	require.Contains(t, welcome.Text, "Alex")
	require.Contains(t, welcome.Text, "City Hall")

	require.Eventually(t, func() bool { return courier.countContaining("in progress") == 1 }, time.Second, 5*time.Millisecond)
}

func TestRideStartNotificationNeedsContact(t *testing.T) {
	courier := &recordingCourier{}
	s, _ := newTestSession(t, models.DefaultProfile(), courier) // no caregiver contact
	bookAndStart(t, s)

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, courier.count())
}

func TestCountdownNonIncreasingAndFinish(t *testing.T) {
	courier := &recordingCourier{}
	s, _ := newTestSession(t, profileWithCaregiver(), courier)
	bookAndStart(t, s)

	prev := s.Snapshot().Ride.ETAMinutes
	for i := 0; i < models.DefaultTripMinutes+5; i++ {
		advance(s, 1)
		eta := s.Snapshot().Ride.ETAMinutes
		require.LessOrEqual(t, eta, prev)
		require.GreaterOrEqual(t, eta, 0)
		prev = eta
	}

	snap := s.Snapshot()
	require.Equal(t, models.StateFinished, snap.State)
	require.Equal(t, models.RideFinished, snap.Ride.Status)
	require.Zero(t, snap.Ride.ETAMinutes)
	require.Eventually(t, func() bool { return courier.countContaining("arrived") == 1 }, time.Second, 5*time.Millisecond)
}

func TestHalfwayNotificationFiresExactlyOnce(t *testing.T) {
	courier := &recordingCourier{}
	s, _ := newTestSession(t, profileWithCaregiver(), courier)
	bookAndStart(t, s)

	advance(s, 15) // 30 -> 15, the first value within the halfway window
	require.Eventually(t, func() bool { return courier.countContaining("halfway") == 1 }, time.Second, 5*time.Millisecond)

	advance(s, 5) // 15 -> 10, still within the window; latch must hold
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, courier.countContaining("halfway"))
}

func TestHalfwayRequiresETAUpdatesOptIn(t *testing.T) {
	courier := &recordingCourier{}
	profile := profileWithCaregiver()
	profile.CaregiverNotifications.ETAUpdates = false
	s, _ := newTestSession(t, profile, courier)
	bookAndStart(t, s)

	advance(s, 20)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, courier.countContaining("halfway"))
}

func TestNewBookingClearsConversation(t *testing.T) {
	s, _ := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)
	advance(s, models.DefaultTripMinutes)
	require.Equal(t, models.StateFinished, s.State())

	require.NoError(t, s.NewBooking())
	snap := s.Snapshot()
	require.Equal(t, models.StateBooking, snap.State)
	require.Empty(t, snap.Messages)
	require.False(t, snap.RideActive)
}

func TestNewBookingRejectedMidRide(t *testing.T) {
	s, _ := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)
	require.Error(t, s.NewBooking())
}

func TestEmergencyIsIdempotent(t *testing.T) {
	courier := &recordingCourier{}
	s, _ := newTestSession(t, profileWithCaregiver(), courier)
	bookAndStart(t, s)

	s.TriggerEmergency()
	s.TriggerEmergency()

	snap := s.Snapshot()
	require.Equal(t, models.RideEmergency, snap.Ride.Status)

	assistant := 0
	for _, m := range snap.Messages {
		if m.AssistantData != nil && m.AssistantData.Intent == models.IntentEmergency {
			assistant++
		}
	}
	require.Equal(t, 1, assistant)

	require.Eventually(t, func() bool { return courier.countContaining("SOS") == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, courier.countContaining("SOS"))
}

func TestEmergencyLatchPausesCountdown(t *testing.T) {
	s, _ := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)

	s.TriggerEmergency()
	before := s.Snapshot().Ride.ETAMinutes
	advance(s, 5)
	require.Equal(t, before, s.Snapshot().Ride.ETAMinutes)
	require.Equal(t, models.StateInRide, s.State())
}

func TestRouteSuggestionResolvesExactlyOnce(t *testing.T) {
	s, cls := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)

	cls.mu.Lock()
	cls.resp = models.AssistantResponse{
		Intent:       models.IntentRouteSuggestion,
		ResponseText: "There's a faster route available.",
		NewRouteDetails: &models.NewRouteSuggestion{
			Name: "Riverside Expressway", ETAMinutes: 18, Description: "Via the riverside expressway.",
		},
	}
	cls.mu.Unlock()

	s.Dispatch(context.Background(), "is there a faster route?")
	snap := s.Snapshot()
	require.Equal(t, models.RideRouteSuggestion, snap.Ride.Status)
	require.NotNil(t, snap.Suggestion)

	s.ResolveRoute(true)
	snap = s.Snapshot()
	require.Equal(t, models.RideInProgress, snap.Ride.Status)
	require.Equal(t, 18, snap.Ride.ETAMinutes)
	require.Equal(t, 18, snap.Ride.TotalTripMinutes)
	require.Equal(t, "Via the riverside expressway.", snap.Ride.RouteDescription)
	require.Nil(t, snap.Suggestion)

	msgs := len(snap.Messages)
	s.ResolveRoute(true) // nothing pending: must be a no-op
	require.Len(t, s.Snapshot().Messages, msgs)
}

func TestRouteDeclineKeepsRide(t *testing.T) {
	s, cls := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)

	cls.mu.Lock()
	cls.resp = models.AssistantResponse{
		Intent:       models.IntentRouteSuggestion,
		ResponseText: "Found one.",
		NewRouteDetails: &models.NewRouteSuggestion{
			Name: "Old Town Loop", ETAMinutes: 12, Description: "Via Old Town.",
		},
	}
	cls.mu.Unlock()

	s.Dispatch(context.Background(), "any better route?")
	before := s.Snapshot().Ride

	s.ResolveRoute(false)
	snap := s.Snapshot()
	require.Equal(t, models.RideInProgress, snap.Ride.Status)
	require.Equal(t, before.ETAMinutes, snap.Ride.ETAMinutes)
	require.Equal(t, before.TotalTripMinutes, snap.Ride.TotalTripMinutes)
	require.Nil(t, snap.Suggestion)
}

func TestStaleTimerCannotRestartFinishedRide(t *testing.T) {
	s, _ := newTestSession(t, profileWithCaregiver(), &recordingCourier{})
	bookAndStart(t, s)

	s.mu.Lock()
	staleGen := s.gen
	s.mu.Unlock()

	advance(s, models.DefaultTripMinutes)
	require.Equal(t, models.StateFinished, s.State())
	require.NoError(t, s.NewBooking())

	// a tick scheduled before the reset must be dropped by the gen guard
	s.tickETA(staleGen)
	require.Equal(t, models.StateBooking, s.State())
}
