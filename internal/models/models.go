package models

import (
	"errors"
	"strings"
	"time"
)

// AppState is the top-level session phase. Exactly one value is active at a
// time; it decides which view is rendered and which lifecycle behaviors
// (timers, welcome message) are armed.
type AppState string

const (
	StateBooking    AppState = "BOOKING"
	StateConfirming AppState = "CONFIRMING"
	StateWaiting    AppState = "WAITING"
	StateInRide     AppState = "IN_RIDE"
	StateFinished   AppState = "FINISHED"
)

// Role selects which read-projection of the session a client sees.
// It is a capability selector, not a user identity.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleCaregiver Role = "caregiver"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePassenger:
		return RolePassenger, nil
	case RoleDriver:
		return RoleDriver, nil
	case RoleCaregiver:
		return RoleCaregiver, nil
	}
	return "", errors.New("unknown role: " + s)
}

// RideCurrentStatus tracks the live ride while a session is active.
// Transitions are one-directional except ROUTE_SUGGESTION<->IN_PROGRESS
// (resolved by accept/decline); EMERGENCY is latched.
type RideCurrentStatus string

const (
	RideInProgress      RideCurrentStatus = "IN_PROGRESS"
	RideEmergency       RideCurrentStatus = "EMERGENCY"
	RideRouteSuggestion RideCurrentStatus = "ROUTE_SUGGESTION"
	RideFinished        RideCurrentStatus = "FINISHED"
)

// Language is the passenger's preferred response language.
type Language string

const (
	LangEN Language = "en"
	LangFR Language = "fr"
	LangTA Language = "ta"
)

func ParseLanguage(s string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case LangFR:
		return LangFR
	case LangTA:
		return LangTA
	default:
		return LangEN
	}
}

type AccessibilityPreferences struct {
	Language       Language `json:"language"`
	LargeFont      bool     `json:"large_font"`
	VoiceOutput    bool     `json:"voice_output"`
	VoiceSpeed     float64  `json:"voice_speed"` // 0.5..2.0
	HapticFeedback bool     `json:"haptic_feedback"`
	SignLanguage   bool     `json:"sign_language"`
}

// CaregiverNotifications holds per-kind opt-ins. The flags are meaningful
// only when a caregiver contact is set; the notification policy must check
// contact presence itself rather than trust the flags.
type CaregiverNotifications struct {
	RideStartEnd    bool `json:"ride_start_end"`
	ETAUpdates      bool `json:"eta_updates"`
	EmergencyAlerts bool `json:"emergency_alerts"`
}

type PassengerProfile struct {
	Name                   string                   `json:"name"`
	AssistanceNeeds        []string                 `json:"assistance_needs"`
	Preferences            AccessibilityPreferences `json:"preferences"`
	CaregiverContact       string                   `json:"caregiver_contact,omitempty"`
	CaregiverNotifications CaregiverNotifications   `json:"caregiver_notifications"`
}

type Driver struct {
	Name    string `json:"name"`
	Vehicle string `json:"vehicle"`
}

// RideStatus is the live ride session. ETAMinutes is non-increasing while
// the ride is IN_PROGRESS and never exceeds TotalTripMinutes.
type RideStatus struct {
	Pickup           string            `json:"pickup"`
	Destination      string            `json:"destination"`
	TotalTripMinutes int               `json:"total_trip_minutes"`
	ETAMinutes       int               `json:"eta_minutes"`
	Driver           Driver            `json:"driver"`
	RouteDescription string            `json:"route_description"`
	Status           RideCurrentStatus `json:"status"`
}

// NewRouteSuggestion is the ephemeral reroute proposal. It lives only
// between a classifier ROUTE_SUGGESTION and the passenger's accept/decline.
type NewRouteSuggestion struct {
	Name        string `json:"name"`
	ETAMinutes  int    `json:"eta_minutes"`
	Description string `json:"description"`
}

// Intent is the classifier's categorical judgement of what the passenger
// wants.
type Intent string

const (
	IntentInfo                 Intent = "INFO"
	IntentAssist               Intent = "ASSIST"
	IntentEmergency            Intent = "EMERGENCY"
	IntentRouteSuggestion      Intent = "ROUTE_SUGGESTION"
	IntentDescribeSurroundings Intent = "DESCRIBE_SURROUNDINGS"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentInfo, IntentAssist, IntentEmergency, IntentRouteSuggestion, IntentDescribeSurroundings:
		return true
	}
	return false
}

// AssistantResponse is the structured payload returned by the intent
// classifier and attached to assistant messages.
type AssistantResponse struct {
	Intent            Intent              `json:"intent"`
	ResponseText      string              `json:"response_text"`
	DriverInstruction *string             `json:"driver_instruction"`
	CaregiverAlert    *string             `json:"caregiver_alert"`
	NewRouteDetails   *NewRouteSuggestion `json:"new_route_details,omitempty"`
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one turn of the conversation. The log is append-only; entries
// are never mutated after append.
type Message struct {
	ID            string             `json:"id"`
	Sender        Sender             `json:"sender"`
	Text          string             `json:"text"`
	Timestamp     time.Time          `json:"timestamp"`
	AssistantData *AssistantResponse `json:"assistant_data,omitempty"`
}

// RideOption is a bookable vehicle class.
type RideOption struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// BookingRequest is the passenger's booking selection.
type BookingRequest struct {
	RideOptionID string `json:"ride_option_id"`
	Pickup       string `json:"pickup"`
	Destination  string `json:"destination"`
}

// Validate enforces the booking preconditions: a selected option plus
// non-empty pickup and destination. No format validation beyond that.
func (b BookingRequest) Validate() error {
	var errs []error
	if strings.TrimSpace(b.RideOptionID) == "" {
		errs = append(errs, errors.New("ride option is required"))
	}
	if strings.TrimSpace(b.Pickup) == "" {
		errs = append(errs, errors.New("pickup is required"))
	}
	if strings.TrimSpace(b.Destination) == "" {
		errs = append(errs, errors.New("destination is required"))
	}
	return errors.Join(errs...)
}

// RideRecord is the archived form of a finished ride.
type RideRecord struct {
	ID               string    `json:"id"`
	PassengerName    string    `json:"passenger_name"`
	Pickup           string    `json:"pickup"`
	Destination      string    `json:"destination"`
	TotalTripMinutes int       `json:"total_trip_minutes"`
	Emergency        bool      `json:"emergency"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}
