package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/observability"
)

// Keyword sets for the local fast paths. Matching is case-insensitive
// substring, multilingual by construction.
var (
	acceptWords    = []string{"accept", "yes", "confirm", "ok", "yep", "sounds good", "accepter", "oui"}
	declineWords   = []string{"decline", "no", "reject", "nope", "cancel", "refuser", "non"}
	emergencyWords = []string{"emergency", "sos", "aide-moi", "urgence"}
)

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Dispatch ingests one passenger utterance. The utterance is logged before
// any other processing so the transcript stays faithful even when later
// steps fail. Local fast paths (route accept/decline, emergency keywords)
// short-circuit without a classifier call; everything else goes to the
// classifier under the single-in-flight guard. A call arriving while a
// classifier request is in flight logs its utterance but is otherwise
// silently dropped, not queued.
func (s *Session) Dispatch(ctx context.Context, utterance string) {
	if strings.TrimSpace(utterance) == "" {
		return
	}

	s.mu.Lock()
	s.appendMessageLocked(models.Message{
		ID:        uuid.NewString(),
		Sender:    models.SenderUser,
		Text:      utterance,
		Timestamp: time.Now(),
	})
	prefs := s.profile.Preferences
	if prefs.HapticFeedback {
		s.haptics.Pulse()
	}

	lower := strings.ToLower(utterance)

	if s.ride.Status == models.RideRouteSuggestion {
		if containsAny(lower, acceptWords) {
			s.resolveRouteLocked(true)
			s.mu.Unlock()
			return
		}
		if containsAny(lower, declineWords) {
			s.resolveRouteLocked(false)
			s.mu.Unlock()
			return
		}
	}

	if containsAny(lower, emergencyWords) {
		s.triggerEmergencyLocked(true)
		s.mu.Unlock()
		return
	}

	if s.busy {
		s.mu.Unlock()
		observability.CommandsDropped.Inc()
		s.logger.Debug("command dropped, classifier busy", "utterance", utterance)
		return
	}
	s.busy = true
	profile, ride := s.profile, s.ride
	s.mu.Unlock()

	observability.CommandsTotal.Inc()
	start := time.Now()
	resp, err := s.classifier.Classify(ctx, utterance, profile, ride)
	observability.ClassifierLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ClassifierFailures.Inc()
		s.logger.Warn("classifier failed, using fallback", "error", err)
		resp = assist.Fallback()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.busy = false }()

	respCopy := resp
	s.appendMessageLocked(models.Message{
		ID:            uuid.NewString(),
		Sender:        models.SenderAssistant,
		Text:          resp.ResponseText,
		Timestamp:     time.Now(),
		AssistantData: &respCopy,
	})

	switch resp.Intent {
	case models.IntentDescribeSurroundings:
		if s.vision != nil {
			s.vision.Request()
		}
	case models.IntentRouteSuggestion:
		if resp.NewRouteDetails != nil {
			sg := *resp.NewRouteDetails
			s.suggestion = &sg
			s.ride.Status = models.RideRouteSuggestion
			s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})
		}
	case models.IntentEmergency:
		// the classifier's own message carries the instruction/alert text;
		// converge on the idempotent latch + caregiver channel only
		s.triggerEmergencyLocked(false)
	}

	if prefs.VoiceOutput {
		s.synth.Speak(resp.ResponseText, prefs.Language, prefs.VoiceSpeed)
	}
	if prefs.HapticFeedback {
		s.haptics.TriplePulse()
	}
}

// Busy reports whether a classifier call is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
