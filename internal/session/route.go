package session

import (
	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/models"
)

// ResolveRoute consumes the pending route suggestion. With no pending
// suggestion the call is a no-op: a suggestion resolves exactly once.
func (s *Session) ResolveRoute(accept bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveRouteLocked(accept)
}

func (s *Session) resolveRouteLocked(accept bool) {
	if s.suggestion == nil {
		return
	}
	lang := s.profile.Preferences.Language
	if accept {
		// the countdown restarts against the new estimate
		s.ride.ETAMinutes = s.suggestion.ETAMinutes
		s.ride.TotalTripMinutes = s.suggestion.ETAMinutes
		s.ride.RouteDescription = s.suggestion.Description
		s.ride.Status = models.RideInProgress
		s.postAssistantLocked(i18n.T(lang, i18n.KeyRouteAccepted), nil)
	} else {
		s.ride.Status = models.RideInProgress
		s.postAssistantLocked(i18n.T(lang, i18n.KeyRouteDeclined), nil)
	}
	s.suggestion = nil
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})
	s.checkHalfwayLocked()
}

// Suggestion returns a copy of the pending route suggestion, if any.
func (s *Session) Suggestion() (models.NewRouteSuggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suggestion == nil {
		return models.NewRouteSuggestion{}, false
	}
	return *s.suggestion, true
}
