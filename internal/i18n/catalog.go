// Package i18n holds the canned assistant strings in the three supported
// passenger languages. Free-form assistant text comes from the classifier in
// the requested language; only locally generated messages go through here.
package i18n

import (
	"fmt"

	"github.com/example/ride-companion/internal/models"
)

type key string

const (
	KeyRouteAccepted      key = "route_accepted"
	KeyRouteDeclined      key = "route_declined"
	KeyEmergencyConfirmed key = "emergency_confirmed"
	KeyCooldownOver       key = "cooldown_over"
	KeyFallback           key = "fallback"
)

var catalog = map[models.Language]map[key]string{
	models.LangEN: {
		KeyRouteAccepted:      "Great, I've updated the route. Your driver has been notified.",
		KeyRouteDeclined:      "No problem, we'll stay on the current route.",
		KeyEmergencyConfirmed: "Emergency mode activated. I've alerted your driver and your emergency contact. Help is on the way.",
		KeyCooldownOver:       "You can now try describing your surroundings again.",
		KeyFallback:           "I'm having a little trouble connecting right now. Please try again in a moment.",
	},
	models.LangFR: {
		KeyRouteAccepted:      "Parfait, j'ai mis à jour l'itinéraire. Votre chauffeur a été prévenu.",
		KeyRouteDeclined:      "Pas de problème, nous restons sur l'itinéraire actuel.",
		KeyEmergencyConfirmed: "Mode urgence activé. J'ai alerté votre chauffeur et votre contact d'urgence. De l'aide arrive.",
		KeyCooldownOver:       "Vous pouvez à nouveau demander une description des environs.",
		KeyFallback:           "J'ai un petit problème de connexion. Veuillez réessayer dans un instant.",
	},
	models.LangTA: {
		KeyRouteAccepted:      "நன்று, பாதையைப் புதுப்பித்துவிட்டேன். உங்கள் ஓட்டுநருக்குத் தெரிவிக்கப்பட்டது.",
		KeyRouteDeclined:      "பரவாயில்லை, தற்போதைய பாதையிலேயே செல்வோம்.",
		KeyEmergencyConfirmed: "அவசர நிலை செயல்படுத்தப்பட்டது. உங்கள் ஓட்டுநருக்கும் அவசரத் தொடர்புக்கும் எச்சரிக்கை அனுப்பப்பட்டது.",
		KeyCooldownOver:       "இப்போது மீண்டும் சுற்றுப்புறத்தை விவரிக்கக் கேட்கலாம்.",
		KeyFallback:           "இணைப்பில் சிறு சிக்கல் உள்ளது. சிறிது நேரம் கழித்து மீண்டும் முயற்சிக்கவும்.",
	},
}

// T resolves a canned string for the given language, falling back to English
// for unknown languages or missing entries.
func T(lang models.Language, k key) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[k]; ok {
			return s
		}
	}
	return catalog[models.LangEN][k]
}

// Fallback is the safe assistant reply substituted when the classifier fails.
// Always English: a stable default beats a missing translation mid-failure.
func Fallback() string {
	return catalog[models.LangEN][KeyFallback]
}

// Welcome builds the greeting posted when the ride begins.
func Welcome(name, destination string) string {
	return fmt.Sprintf("Hello %s, your ride to %s is starting now. Please fasten your seatbelt. I'm your in-ride assistant. If you need anything, just ask.", name, destination)
}

// QuickActions suggests canned queries per language, surfaced to clients as
// one-tap shortcuts.
func QuickActions(lang models.Language) []QuickAction {
	switch lang {
	case models.LangFR:
		return []QuickAction{
			{Label: "ETA?", Query: "Quelle est mon ETA actuelle ?"},
			{Label: "Qu'y a-t-il autour?", Query: "Pouvez-vous décrire ce qui nous entoure ?"},
			{Label: "Meilleur Itinéraire?", Query: "Existe-t-il un itinéraire plus rapide ?"},
			{Label: "Besoin d'aide", Query: "J'ai besoin d'aide."},
		}
	case models.LangTA:
		return []QuickAction{
			{Label: "ETA?", Query: "எனது தற்போதைய ETA என்ன?"},
			{Label: "சுற்றி என்ன?", Query: "நம்மைச் சுற்றி என்ன இருக்கிறது என்று விவரிக்க முடியுமா?"},
			{Label: "சிறந்த வழி?", Query: "வேகமான பாதை உள்ளதா?"},
			{Label: "உதவி தேவை", Query: "எனக்கு சில உதவிகள் தேவை."},
		}
	default:
		return []QuickAction{
			{Label: "ETA?", Query: "What is my current ETA?"},
			{Label: "What's Around?", Query: "Can you describe what's around us?"},
			{Label: "Better Route?", Query: "Is there a faster route available?"},
			{Label: "Need Help", Query: "I need some assistance."},
		}
	}
}

type QuickAction struct {
	Label string `json:"label"`
	Query string `json:"query"`
}
