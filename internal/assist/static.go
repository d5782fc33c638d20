package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/ride-companion/internal/models"
)

// StaticClassifier is a keyword-driven stand-in used when no language model
// is configured. It keeps local runs and demos functional; production wiring
// substitutes the OpenAI classifier.
type StaticClassifier struct{}

func (StaticClassifier) Classify(_ context.Context, utterance string, profile models.PassengerProfile, ride models.RideStatus) (models.AssistantResponse, error) {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "describe") || strings.Contains(lower, "around") ||
		strings.Contains(lower, "see") || strings.Contains(lower, "entoure") ||
		strings.Contains(lower, "சுற்றி"):
		return models.AssistantResponse{
			Intent:       models.IntentDescribeSurroundings,
			ResponseText: "Of course. Let me take a look around for you.",
		}, nil
	case strings.Contains(lower, "faster") || strings.Contains(lower, "better route") ||
		strings.Contains(lower, "rapide") || strings.Contains(lower, "itinéraire") ||
		strings.Contains(lower, "வழி"):
		return models.AssistantResponse{
			Intent:       models.IntentRouteSuggestion,
			ResponseText: "I found an alternative route via the riverside expressway that should save some time. Would you like to take it?",
			NewRouteDetails: &models.NewRouteSuggestion{
				Name:        "Riverside Expressway",
				ETAMinutes:  maxInt(ride.ETAMinutes-5, 5),
				Description: "Via the riverside expressway. Less traffic at this hour.",
			},
		}, nil
	case strings.Contains(lower, "eta") || strings.Contains(lower, "how long") ||
		strings.Contains(lower, "time left"):
		return models.AssistantResponse{
			Intent:       models.IntentInfo,
			ResponseText: fmt.Sprintf("%s, you're about %d minutes from %s.", profile.Name, ride.ETAMinutes, ride.Destination),
		}, nil
	case strings.Contains(lower, "help") || strings.Contains(lower, "assist") ||
		strings.Contains(lower, "aide") || strings.Contains(lower, "உதவி"):
		instruction := "Passenger has requested assistance. Please check in with them."
		return models.AssistantResponse{
			Intent:            models.IntentAssist,
			ResponseText:      fmt.Sprintf("I'm right here with you, %s. I've let your driver know you need a hand.", profile.Name),
			DriverInstruction: &instruction,
		}, nil
	default:
		return models.AssistantResponse{
			Intent:       models.IntentInfo,
			ResponseText: fmt.Sprintf("I heard you, %s. We're on the way to %s and everything looks fine.", profile.Name, ride.Destination),
		}, nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
