package session

import (
	"context"

	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/observability"
)

// Fixed emergency directives. The driver instruction and caregiver alert are
// factual and constant regardless of how the emergency was raised.
const (
	emergencyDriverInstruction = "EMERGENCY: Passenger requires immediate assistance. Pull over when safe."
	emergencyCaregiverAlert    = "EMERGENCY: Passenger has activated the SOS button."
)

// TriggerEmergency latches the ride into EMERGENCY. Idempotent: repeated
// triggers (SOS control, keyword match, classifier intent) produce exactly
// one alert and one status change.
func (s *Session) TriggerEmergency() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerEmergencyLocked(true)
}

// triggerEmergencyLocked applies the latch. announce controls the canned
// confirmation message; the classifier-intent path suppresses it because the
// classifier's own reply already carries the instruction and alert text.
func (s *Session) triggerEmergencyLocked(announce bool) {
	if s.ride.Status == models.RideEmergency {
		return
	}
	s.ride.Status = models.RideEmergency
	s.emergencyRaised = true
	observability.EmergenciesTotal.Inc()
	s.emitLocked(Event{Type: EventRideUpdated, Ride: s.rideCopyLocked()})

	if announce {
		instruction := emergencyDriverInstruction
		alert := emergencyCaregiverAlert
		s.postAssistantLocked(i18n.T(s.profile.Preferences.Language, i18n.KeyEmergencyConfirmed), &models.AssistantResponse{
			Intent:            models.IntentEmergency,
			ResponseText:      i18n.T(s.profile.Preferences.Language, i18n.KeyEmergencyConfirmed),
			DriverInstruction: &instruction,
			CaregiverAlert:    &alert,
		})
	}

	if s.notifier != nil {
		profile, ride := s.profile, s.ride
		go s.notifier.Emergency(context.Background(), profile, ride)
	}
}
