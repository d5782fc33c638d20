package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/config"
	"github.com/example/ride-companion/internal/dispatch"
	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/ingest"
	"github.com/example/ride-companion/internal/logging"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/session"
	"github.com/example/ride-companion/internal/storage"
	"github.com/example/ride-companion/internal/vision"
)

// Server exposes one companion session over HTTP and websockets.
type Server struct {
	Session *session.Session
	Vision  *vision.Controller
	Frames  *vision.LatestFrame
	Prefs   storage.PreferenceStore
	History storage.HistoryStore
	WSReg   *dispatch.WSRegistry

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires a server around an existing session.
func NewServer(sess *session.Session, prefs storage.PreferenceStore, history storage.HistoryStore, logger *slog.Logger) *Server {
	s := &Server{
		Session: sess,
		Prefs:   prefs,
		History: history,
		WSReg:   dispatch.NewWSRegistry(logger),
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewServerFromEnv builds the full production wiring: env config, Redis or
// memory preferences, Postgres or memory ride history, OpenAI or the static
// classifier, SMS gateway or log courier, optional Kafka event stream.
func NewServerFromEnv() (*Server, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var prefs storage.PreferenceStore
	if cfg.RedisAddr != "" {
		prefs = storage.NewRedisPrefs(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		prefs = storage.NewMemoryPrefs()
	}

	var history storage.HistoryStore
	if cfg.PGDSN != "" {
		if ph, err := storage.NewPostgresHistory(cfg.PGDSN); err == nil {
			history = ph
		} else {
			logger.Warn("postgres unavailable, keeping history in memory", "error", err)
		}
	}
	if history == nil {
		history = storage.NewMemoryHistory()
	}

	var classifier assist.Classifier
	if cfg.OpenAIAPIKey != "" {
		classifier = assist.NewOpenAIClassifier(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using the static classifier")
		classifier = assist.StaticClassifier{}
	}

	var courier dispatch.Courier
	if cfg.CourierEndpoint != "" {
		courier = dispatch.NewHTTPCourier(cfg.CourierEndpoint, cfg.CourierKey)
	} else {
		courier = &dispatch.LogCourier{Logger: logger}
	}
	policy := dispatch.NewPolicy(courier, cfg.TrackingLink, logger)

	profile := models.DefaultProfile()
	if p, ok, err := prefs.LoadProfile(context.Background()); err != nil {
		logger.Warn("profile load failed, using defaults", "error", err)
	} else if ok {
		profile = p
	}

	sess := session.New(logger, classifier, profile,
		session.WithNotifier(policy),
		session.WithPreferenceStore(prefs),
		session.WithHistory(history),
		session.WithTimings(session.Timings{
			DriverSearch: cfg.DriverSearchDelay,
			DriverAssign: cfg.DriverAssignDelay,
			ETATick:      cfg.ETATickInterval,
		}),
	)

	var describer assist.Describer
	if cfg.OpenAIAPIKey != "" {
		describer = assist.NewOpenAIDescriber(cfg.OpenAIAPIKey, cfg.VisionModel)
	} else {
		describer = assist.StaticDescriber{}
	}
	frames := vision.NewLatestFrame(0)
	ctrl := vision.NewController(vision.Config{
		Logger:    logger,
		Frames:    frames,
		Describer: describer,
		Profile:   sess.Profile,
		Post:      sess.PostAssistantMessage,
		CooldownOverText: func() string {
			return i18n.T(sess.Profile().Preferences.Language, i18n.KeyCooldownOver)
		},
		Settle:   cfg.VisionSettleDelay,
		Cooldown: cfg.VisionCooldown,
	})
	sess.AttachVision(ctrl)

	srv := NewServer(sess, prefs, history, logger)
	srv.Vision = ctrl
	srv.Frames = frames
	sess.AddSink(srv.Sink())

	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		sess.AddSink(kp.Sink())
	}

	return srv, nil
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/options", s.handleRideOptions).Methods("GET")
	api.HandleFunc("/quick-actions", s.handleQuickActions).Methods("GET")
	api.HandleFunc("/sign-language", s.handleSignLanguage).Methods("GET")
	api.HandleFunc("/bookings", s.handleBooking).Methods("POST")
	api.HandleFunc("/bookings/confirm", s.handleConfirm).Methods("POST")
	api.HandleFunc("/bookings/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/rides/new", s.handleNewBooking).Methods("POST")
	api.HandleFunc("/rides/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/commands", s.handleCommand).Methods("POST")
	api.HandleFunc("/messages", s.handleMessages).Methods("GET")
	api.HandleFunc("/emergency", s.handleEmergency).Methods("POST")
	api.HandleFunc("/route-decision", s.handleRouteDecision).Methods("POST")
	api.HandleFunc("/profile", s.handleGetProfile).Methods("GET")
	api.HandleFunc("/profile", s.handlePutProfile).Methods("PUT")
	api.HandleFunc("/role", s.handleGetRole).Methods("GET")
	api.HandleFunc("/role", s.handlePutRole).Methods("PUT")
	api.HandleFunc("/view/{role}", s.handleView).Methods("GET")
	api.HandleFunc("/vision/frame", s.handleVisionFrame).Methods("POST")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{role}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

func (s *Server) handleRideOptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.RideOptions)
}

func (s *Server) handleQuickActions(w http.ResponseWriter, r *http.Request) {
	lang := s.Session.Profile().Preferences.Language
	s.writeJSON(w, http.StatusOK, i18n.QuickActions(lang))
}

func (s *Server) handleSignLanguage(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.SignLanguageClips)
}

func (s *Server) handleBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Session.Book(req); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{"state": s.Session.State()})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Confirm(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": s.Session.State()})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.CancelBooking(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": s.Session.State()})
}

func (s *Server) handleNewBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.NewBooking(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": s.Session.State()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := s.History.ListRides(r.Context(), 50)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// empty commands are prevented, not errored
	if req.Text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.Session.Dispatch(r.Context(), req.Text)
	s.writeJSON(w, http.StatusOK, s.Session.Snapshot())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Snapshot().Messages)
}

func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	s.Session.TriggerEmergency()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": models.RideEmergency})
}

func (s *Server) handleRouteDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.Session.ResolveRoute(req.Accept)
	s.writeJSON(w, http.StatusOK, s.Session.Snapshot())
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Profile())
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p models.PassengerProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Preferences.VoiceSpeed < 0.5 || p.Preferences.VoiceSpeed > 2.0 {
		http.Error(w, "voice_speed must be in [0.5, 2.0]", http.StatusUnprocessableEntity)
		return
	}
	s.Session.SetProfile(p)
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	role := models.RolePassenger
	if stored, ok, err := s.Prefs.LoadRole(r.Context()); err == nil && ok {
		role = stored
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"role": role})
}

func (s *Server) handlePutRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.Prefs.SaveRole(role); err != nil {
		s.logger.Warn("role save failed", "error", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"role": role})
}

// handleVisionFrame receives the newest camera frame from the device. The
// server never owns a camera; the client streams frames and the capture
// controller pulls the freshest one when a description is requested.
func (s *Server) handleVisionFrame(w http.ResponseWriter, r *http.Request) {
	if s.Frames == nil {
		http.Error(w, "vision not configured", http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil || len(body) == 0 {
		http.Error(w, "empty frame", http.StatusBadRequest)
		return
	}
	s.Frames.Push(body)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, session.Project(role, s.Session.Snapshot()))
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	ws := s.WSReg.Add(role, conn)
	// initial view so the client renders without waiting for an event
	_ = ws.Send(session.Project(role, s.Session.Snapshot()))
}

// Sink returns the session sink that pushes fresh role projections to every
// connected socket on each session event.
func (s *Server) Sink() session.Sink {
	return func(session.Event) {
		snap := s.Session.Snapshot()
		s.WSReg.Broadcast(func(role models.Role) any {
			return session.Project(role, snap)
		})
	}
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
