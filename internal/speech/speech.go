// Package speech defines the ports to the speech and haptic engines. The
// engines themselves live outside this service (device/browser side); the
// session only needs something to hand text and pulse patterns to.
package speech

import (
	"log/slog"
	"sync"

	"github.com/example/ride-companion/internal/models"
)

// Synthesizer speaks assistant text. Pre-emptible: a new Speak cancels any
// in-flight utterance.
type Synthesizer interface {
	Speak(text string, lang models.Language, rate float64)
	Cancel()
	Speaking() bool
}

// RecognizerStatus tracks one listening session: idle -> listening ->
// processing -> idle or error.
type RecognizerStatus string

const (
	StatusIdle       RecognizerStatus = "idle"
	StatusListening  RecognizerStatus = "listening"
	StatusProcessing RecognizerStatus = "processing"
	StatusError      RecognizerStatus = "error"
)

// Permission is the microphone permission state reported by the engine.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionPrompt  Permission = "prompt"
	PermissionDenied  Permission = "denied"
)

// Recognizer captures a single utterance per listening session
// (non-continuous) and reports status transitions. A denied permission is a
// persistent non-fatal state; the user clears it outside this system.
type Recognizer interface {
	Start(lang models.Language) error
	Stop()
	Status() RecognizerStatus
	Permission() Permission
	// Transcript returns the final transcript of the last completed session.
	Transcript() (string, bool)
}

// Haptics triggers vibration patterns on the passenger's device.
type Haptics interface {
	// Pulse fires one short vibration, the command-received acknowledgement.
	Pulse()
	// TriplePulse fires the response-ready pattern.
	TriplePulse()
}

// LogSynthesizer records speech requests instead of producing audio.
type LogSynthesizer struct {
	Logger *slog.Logger

	mu       sync.Mutex
	speaking bool
}

func (s *LogSynthesizer) Speak(text string, lang models.Language, rate float64) {
	s.mu.Lock()
	s.speaking = true
	s.mu.Unlock()
	s.Logger.Info("speak", "lang", lang, "rate", rate, "text", text)
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
}

func (s *LogSynthesizer) Cancel() {
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
}

func (s *LogSynthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// NopHaptics is used when the client reports no vibration capability.
type NopHaptics struct{}

func (NopHaptics) Pulse()       {}
func (NopHaptics) TriplePulse() {}
