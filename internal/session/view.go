package session

import (
	"time"

	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/models"
)

// Snapshot is a consistent copy of the session state taken in one tick.
type Snapshot struct {
	State          models.AppState            `json:"state"`
	Profile        models.PassengerProfile    `json:"profile"`
	Ride           models.RideStatus          `json:"ride"`
	RideActive     bool                       `json:"ride_active"`
	DriverAssigned bool                       `json:"driver_assigned"`
	Booking        *models.BookingRequest     `json:"booking,omitempty"`
	Suggestion     *models.NewRouteSuggestion `json:"suggestion,omitempty"`
	Messages       []models.Message           `json:"messages"`
	Busy           bool                       `json:"busy"`
}

// Snapshot returns a copy of everything a projection needs.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:          s.state,
		Profile:        s.profile,
		Ride:           s.ride,
		RideActive:     s.rideActive,
		DriverAssigned: s.driverAssigned,
		Busy:           s.busy,
		Messages:       make([]models.Message, len(s.log)),
	}
	copy(snap.Messages, s.log)
	if s.booking != nil {
		b := *s.booking
		snap.Booking = &b
	}
	if s.suggestion != nil {
		sg := *s.suggestion
		snap.Suggestion = &sg
	}
	return snap
}

// ViewMessage is a message as one role is allowed to see it. Driver and
// caregiver payloads carry only their own channel of the structured data.
type ViewMessage struct {
	ID                string         `json:"id"`
	Sender            models.Sender  `json:"sender"`
	Text              string         `json:"text"`
	Timestamp         string         `json:"timestamp"`
	Intent            *models.Intent `json:"intent,omitempty"`
	DriverInstruction *string        `json:"driver_instruction,omitempty"`
	CaregiverAlert    *string        `json:"caregiver_alert,omitempty"`
}

// ViewModel is the read-projection handed to one role. It carries no
// behavior; projections never drive transitions.
type ViewModel struct {
	Role           models.Role                `json:"role"`
	State          models.AppState            `json:"state"`
	WaitingForRide bool                       `json:"waiting_for_ride,omitempty"`
	Ride           *models.RideStatus         `json:"ride,omitempty"`
	DriverAssigned bool                       `json:"driver_assigned,omitempty"`
	Profile        *models.PassengerProfile   `json:"profile,omitempty"`
	PassengerName  string                     `json:"passenger_name,omitempty"`
	AssistanceInfo []string                   `json:"assistance_info,omitempty"`
	Suggestion     *models.NewRouteSuggestion `json:"suggestion,omitempty"`
	Messages       []ViewMessage              `json:"messages,omitempty"`
	QuickActions   []i18n.QuickAction         `json:"quick_actions,omitempty"`
	Busy           bool                       `json:"busy,omitempty"`
}

/// Project renders one role's read-only view of a snapshot. Pure: no side
// effects, no session access beyond the snapshot.
func Project(role models.Role, snap Snapshot) ViewModel {
	vm := ViewModel{Role: role, State: snap.State}

	if role != models.RolePassenger {
		// non-passenger roles only observe an active session
		if snap.State == models.StateBooking || snap.State == models.StateConfirming {
			vm.WaitingForRide = true
			return vm
		}
	}

	switch role {
	case models.RolePassenger:
		p := snap.Profile
		vm.Profile = &p
		vm.Busy = snap.Busy
		vm.QuickActions = i18n.QuickActions(snap.Profile.Preferences.Language)
		if snap.RideActive {
			r := snap.Ride
			vm.Ride = &r
			vm.DriverAssigned = snap.DriverAssigned
		}
		vm.Suggestion = snap.Suggestion
		vm.Messages = projectMessages(snap.Messages, role)

	case models.RoleDriver:
		vm.PassengerName = snap.Profile.Name
		vm.AssistanceInfo = append([]string(nil), snap.Profile.AssistanceNeeds...)
		if snap.RideActive {
			r := snap.Ride
			vm.Ride = &r
		}
		vm.Messages = projectMessages(snap.Messages, role)

	case models.RoleCaregiver:
		if snap.RideActive {
			r := snap.Ride
			vm.Ride = &r
		}
		vm.Messages = projectMessages(snap.Messages, role)
	}
	return vm
}

func projectMessages(msgs []models.Message, role models.Role) []ViewMessage {
	out := make([]ViewMessage, 0, len(msgs))
	for _, m := range msgs {
		vm := ViewMessage{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		}
		if m.AssistantData != nil {
			intent := m.AssistantData.Intent
			vm.Intent = &intent
			switch role {
			case models.RolePassenger:
				vm.DriverInstruction = m.AssistantData.DriverInstruction
				vm.CaregiverAlert = m.AssistantData.CaregiverAlert
			case models.RoleDriver:
				vm.DriverInstruction = m.AssistantData.DriverInstruction
			case models.RoleCaregiver:
				vm.CaregiverAlert = m.AssistantData.CaregiverAlert
			}
		}
		out = append(out, vm)
	}
	return out
}
