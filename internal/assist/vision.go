package assist

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/example/ride-companion/internal/models"
)

// Describer narrates a single camera frame for the passenger.
type Describer interface {
	Describe(ctx context.Context, frameJPEG []byte, profile models.PassengerProfile) (string, error)
}

// RateLimitSentinel is the phrase a rate-limited describer response carries.
// The capture controller matches on it to enter the cooldown window.
const RateLimitSentinel = "high volume of requests"

// RateLimitedMessage is returned to the passenger when the model reports
// resource exhaustion.
const RateLimitedMessage = "I'm sorry, but I'm experiencing a high volume of requests right now. Please wait about 30 seconds before trying again."

// IsRateLimited reports whether a describer reply is the rate-limit sentinel.
func IsRateLimited(description string) bool {
	return strings.Contains(description, RateLimitSentinel)
}

// OpenAIDescriber sends a frame to a vision-capable chat model.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

func NewOpenAIDescriber(apiKey, model string) *OpenAIDescriber {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIDescriber{client: openai.NewClient(apiKey), model: model}
}

func (d *OpenAIDescriber) Describe(ctx context.Context, frameJPEG []byte, profile models.PassengerProfile) (string, error) {
	prompt := fmt.Sprintf("You are an in-car assistant. Your passenger, %s, whose needs include '%s', asked you to describe the surroundings. Based on the camera image, give a calm, descriptive narration of the scene: landmarks, architecture, weather, notable activity. Keep the tone reassuring and informative.",
		profile.Name, strings.Join(profile.AssistanceNeeds, ", "))

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frameJPEG),
				}},
			},
		}},
	})
	if err != nil {
		if strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
			return RateLimitedMessage, nil
		}
		return "", fmt.Errorf("describer call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("describer returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
