package models

// RideOptions is the bookable catalog.
var RideOptions = []RideOption{
	{ID: "standard", Name: "Standard Ride", Description: "A standard vehicle for up to 4 passengers.", Price: 25.50},
	{ID: "wheelchair", Name: "Wheelchair Van", Description: "A vehicle with ramp or lift access.", Price: 35.00},
	{ID: "assisted", Name: "Assisted Ride", Description: "Driver provides extra assistance from door to door.", Price: 40.00},
}

// RideOptionByID returns the catalog entry for id, if any.
func RideOptionByID(id string) (RideOption, bool) {
	for _, o := range RideOptions {
		if o.ID == id {
			return o, true
		}
	}
	return RideOption{}, false
}

// DefaultTripMinutes is the fixed trip estimate assigned at confirmation.
const DefaultTripMinutes = 30

// DefaultProfile returns the profile used when the preference store holds
// nothing for the passenger yet.
func DefaultProfile() PassengerProfile {
	return PassengerProfile{
		Name:            "Alex",
		AssistanceNeeds: []string{"Visually Impaired", "Uses a cane"},
		Preferences: AccessibilityPreferences{
			Language:       LangEN,
			VoiceOutput:    true,
			VoiceSpeed:     1.0,
			HapticFeedback: true,
		},
		CaregiverNotifications: CaregiverNotifications{
			RideStartEnd:    true,
			ETAUpdates:      true,
			EmergencyAlerts: true,
		},
	}
}

// DefaultRideStatus returns the ride template cloned at confirmation.
func DefaultRideStatus() RideStatus {
	return RideStatus{
		Pickup:           "123 Main St, Cityville",
		Destination:      "National Art Museum",
		TotalTripMinutes: DefaultTripMinutes,
		ETAMinutes:       DefaultTripMinutes,
		Driver:           Driver{Name: "Ben", Vehicle: "Blue Toyota Prius"},
		RouteDescription: "Via City Center highway. Light traffic expected.",
		Status:           RideInProgress,
	}
}

// SignLanguageClips maps conversation keywords to sign-language clip URLs,
// served read-only to clients that enable the sign-language preference.
var SignLanguageClips = map[string]string{
	"eta":         "https://www.signasl.org/assets/videos/time.mp4",
	"time":        "https://www.signasl.org/assets/videos/time.mp4",
	"where":       "https://www.signasl.org/assets/videos/where.mp4",
	"location":    "https://www.signasl.org/assets/videos/where.mp4",
	"help":        "https://www.signasl.org/assets/videos/help.mp4",
	"assistance":  "https://www.signasl.org/assets/videos/help.mp4",
	"seat":        "https://www.signasl.org/assets/videos/seat.mp4",
	"temperature": "https://www.signasl.org/assets/videos/temperature.mp4",
	"hot":         "https://www.signasl.org/assets/videos/hot.mp4",
	"cold":        "https://www.signasl.org/assets/videos/cold.mp4",
	"emergency":   "https://www.signasl.org/assets/videos/emergency.mp4",
	"stop":        "https://www.signasl.org/assets/videos/stop.mp4",
}
