// Package assist wraps the language-model collaborators: the intent
// classifier that turns free-form passenger utterances into structured
// responses, and the scene describer that narrates camera frames.
package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/example/ride-companion/internal/i18n"
	"github.com/example/ride-companion/internal/models"
)

// Classifier is the minimal interface the session needs to interpret an
// utterance. Implementations must respond in the language named in the
// profile.
type Classifier interface {
	Classify(ctx context.Context, utterance string, profile models.PassengerProfile, ride models.RideStatus) (models.AssistantResponse, error)
}

// Fallback is the safe assistant response substituted when the classifier
// fails or returns a malformed payload. Callers never surface raw errors.
func Fallback() models.AssistantResponse {
	return models.AssistantResponse{
		Intent:       models.IntentInfo,
		ResponseText: i18n.Fallback(),
	}
}

// OpenAIClassifier calls a chat-completion model in JSON mode and validates
// the returned shape strictly. The model output is untrusted input.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIClassifier(apiKey, model string, logger *slog.Logger) *OpenAIClassifier {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClassifier{client: openai.NewClient(apiKey), model: model, logger: logger}
}

const classifierSystemPrompt = `You are an in-car companion assistant for a passenger with accessibility needs.
Your personality is empathetic, calm, patient, and reassuring. Safety comes first:
any hint of distress maps to ASSIST or EMERGENCY. If the passenger asks you to
describe the surroundings, do not invent a description; use intent
DESCRIBE_SURROUNDINGS and confirm briefly. If the passenger asks for a faster,
better, or different route, use intent ROUTE_SUGGESTION and provide one
simulated alternative in new_route_details.

Respond ONLY with a single JSON object:
{"intent": one of INFO|ASSIST|EMERGENCY|ROUTE_SUGGESTION|DESCRIBE_SURROUNDINGS,
 "response_text": string in the passenger's language,
 "driver_instruction": string or null,
 "caregiver_alert": string or null,
 "new_route_details": {"name": string, "eta_minutes": number, "description": string} or null}`

func (c *OpenAIClassifier) Classify(ctx context.Context, utterance string, profile models.PassengerProfile, ride models.RideStatus) (models.AssistantResponse, error) {
	profileJSON, _ := json.Marshal(profile)
	rideJSON, _ := json.Marshal(ride)
	user := fmt.Sprintf("Passenger profile: %s\nCurrent ride status: %s\nPassenger language: %s\n\nPassenger request: %q",
		profileJSON, rideJSON, profile.Preferences.Language, utterance)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return models.AssistantResponse{}, fmt.Errorf("classifier call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.AssistantResponse{}, errors.New("classifier returned no choices")
	}
	parsed, err := ParseResponse([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		c.logger.Warn("classifier returned malformed payload", "error", err)
		return models.AssistantResponse{}, err
	}
	return parsed, nil
}

// ParseResponse decodes and validates a structured classifier payload.
// Missing or out-of-range required fields reject the whole payload; the
// caller then falls back per the dispatch loop's error policy.
func ParseResponse(raw []byte) (models.AssistantResponse, error) {
	var r models.AssistantResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.AssistantResponse{}, fmt.Errorf("decode classifier response: %w", err)
	}
	if !r.Intent.Valid() {
		return models.AssistantResponse{}, fmt.Errorf("invalid intent %q", r.Intent)
	}
	if strings.TrimSpace(r.ResponseText) == "" {
		return models.AssistantResponse{}, errors.New("empty response_text")
	}
	if r.NewRouteDetails != nil {
		d := r.NewRouteDetails
		if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Description) == "" || d.ETAMinutes <= 0 {
			return models.AssistantResponse{}, errors.New("incomplete new_route_details")
		}
	}
	if r.Intent == models.IntentRouteSuggestion && r.NewRouteDetails == nil {
		return models.AssistantResponse{}, errors.New("ROUTE_SUGGESTION without new_route_details")
	}
	return r, nil
}
