package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/logging"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/session"
	"github.com/example/ride-companion/internal/storage"
	"github.com/example/ride-companion/internal/vision"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logging.Discard()
	sess := session.New(logger, assist.StaticClassifier{}, models.DefaultProfile(),
		session.WithPreferenceStore(storage.NewMemoryPrefs()),
		session.WithTimings(session.Timings{
			DriverSearch: time.Millisecond,
			DriverAssign: time.Millisecond,
			ETATick:      time.Hour,
		}),
	)
	t.Cleanup(sess.Close)
	return NewServer(sess, storage.NewMemoryPrefs(), storage.NewMemoryHistory(), logger)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestRideOptionsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/v1/options", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var opts []models.RideOption
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &opts))
	require.Len(t, opts, len(models.RideOptions))
}

func TestBookingFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", models.BookingRequest{
		RideOptionID: "standard", Pickup: "123 Main St", Destination: "City Hall",
	})
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), string(models.StateConfirming))

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/bookings/confirm", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), string(models.StateWaiting))

	// cancellation is only valid before confirmation
	rr = doJSON(t, srv, http.MethodPost, "/api/v1/bookings/cancel", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestBookingRejectsIncompleteSelection(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/v1/bookings", models.BookingRequest{Pickup: "A"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestBookingRejectsMalformedJSON(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCommandEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/commands", map[string]string{"text": ""})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/commands", map[string]string{"text": "what is my eta?"})
	require.Equal(t, http.StatusOK, rr.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	require.Len(t, snap.Messages, 2)
	require.Equal(t, models.SenderUser, snap.Messages[0].Sender)
	require.Equal(t, models.SenderAssistant, snap.Messages[1].Sender)
}

func TestMessagesEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]\n", rr.Body.String())

	doJSON(t, srv, http.MethodPost, "/api/v1/commands", map[string]string{"text": "hello"})
	rr = doJSON(t, srv, http.MethodGet, "/api/v1/messages", nil)
	var msgs []models.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
}

func TestEmergencyEndpoint(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodPost, "/api/v1/emergency", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, models.RideEmergency, srv.Session.Snapshot().Ride.Status)
}

func TestProfileVoiceSpeedBounds(t *testing.T) {
	srv := newTestServer(t)

	p := models.DefaultProfile()
	p.Preferences.VoiceSpeed = 3.5
	rr := doJSON(t, srv, http.MethodPut, "/api/v1/profile", p)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	p.Preferences.VoiceSpeed = 1.5
	rr = doJSON(t, srv, http.MethodPut, "/api/v1/profile", p)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1.5, srv.Session.Profile().Preferences.VoiceSpeed)
}

func TestRoleRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/role", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), string(models.RolePassenger))

	rr = doJSON(t, srv, http.MethodPut, "/api/v1/role", map[string]string{"role": "caregiver"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/role", nil)
	require.Contains(t, rr.Body.String(), string(models.RoleCaregiver))

	rr = doJSON(t, srv, http.MethodPut, "/api/v1/role", map[string]string{"role": "dispatcher"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestViewEndpointFiltersByRole(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/view/driver", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var vm session.ViewModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vm))
	require.True(t, vm.WaitingForRide)
	require.Nil(t, vm.Profile)

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/view/passenger", nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vm))
	require.NotNil(t, vm.Profile)

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/view/nobody", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVisionFrameEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// the frame buffer is part of the vision wiring; without it the endpoint
	// reports unavailable
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vision/frame", bytes.NewReader([]byte("jpegbytes")))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	srv.Frames = vision.NewLatestFrame(time.Minute)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/vision/frame", bytes.NewReader([]byte("jpegbytes")))
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	frame, err := srv.Frames.Capture(req.Context())
	require.NoError(t, err)
	require.Equal(t, []byte("jpegbytes"), frame)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/vision/frame", bytes.NewReader(nil))
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestSignLanguageCatalog(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/api/v1/sign-language", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var clips map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &clips))
	require.Contains(t, clips, "emergency")
}
