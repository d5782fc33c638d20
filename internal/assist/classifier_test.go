package assist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/ride-companion/internal/models"
)

func TestParseResponseAcceptsWellFormedPayload(t *testing.T) {
	raw := `{
		"intent": "ROUTE_SUGGESTION",
		"response_text": "I found a faster route via the expressway.",
		"driver_instruction": null,
		"caregiver_alert": null,
		"new_route_details": {"name": "Riverside Expressway", "eta_minutes": 18, "description": "Via the riverside expressway."}
	}`
	resp, err := ParseResponse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, models.IntentRouteSuggestion, resp.Intent)
	require.NotNil(t, resp.NewRouteDetails)
	require.Equal(t, 18, resp.NewRouteDetails.ETAMinutes)
}

func TestParseResponseRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `the model answered in prose`},
		{"unknown intent", `{"intent": "CHITCHAT", "response_text": "hi"}`},
		{"missing intent", `{"response_text": "hi"}`},
		{"empty response text", `{"intent": "INFO", "response_text": "  "}`},
		{"route suggestion without details", `{"intent": "ROUTE_SUGGESTION", "response_text": "faster route found"}`},
		{"route details missing name", `{"intent": "ROUTE_SUGGESTION", "response_text": "x", "new_route_details": {"name": "", "eta_minutes": 10, "description": "d"}}`},
		{"route details zero eta", `{"intent": "ROUTE_SUGGESTION", "response_text": "x", "new_route_details": {"name": "n", "eta_minutes": 0, "description": "d"}}`},
		{"route details negative eta", `{"intent": "INFO", "response_text": "x", "new_route_details": {"name": "n", "eta_minutes": -3, "description": "d"}}`},
		{"route details missing description", `{"intent": "ROUTE_SUGGESTION", "response_text": "x", "new_route_details": {"name": "n", "eta_minutes": 10, "description": " "}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResponse([]byte(tc.raw))
			require.Error(t, err)
		})
	}
}

func TestParseResponseKeepsDirectives(t *testing.T) {
	raw := `{
		"intent": "EMERGENCY",
		"response_text": "Help is on the way.",
		"driver_instruction": "Pull over when safe.",
		"caregiver_alert": "SOS activated."
	}`
	resp, err := ParseResponse([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, resp.DriverInstruction)
	require.Equal(t, "Pull over when safe.", *resp.DriverInstruction)
	require.NotNil(t, resp.CaregiverAlert)
	require.Equal(t, "SOS activated.", *resp.CaregiverAlert)
}

func TestFallbackIsAlwaysServable(t *testing.T) {
	f := Fallback()
	require.True(t, f.Intent.Valid())
	require.NotEmpty(t, f.ResponseText)
}

func TestIsRateLimited(t *testing.T) {
	require.True(t, IsRateLimited(RateLimitedMessage))
	require.False(t, IsRateLimited("A quiet street with trees."))
}

func TestStaticClassifierIntents(t *testing.T) {
	c := &StaticClassifier{}
	ride := models.DefaultRideStatus()
	profile := models.DefaultProfile()

	cases := []struct {
		utterance string
		intent    models.Intent
	}{
		{"can you describe what's around us?", models.IntentDescribeSurroundings},
		{"is there a faster route?", models.IntentRouteSuggestion},
		{"what's my eta?", models.IntentInfo},
		{"I need some help with my seatbelt", models.IntentAssist},
	}
	for _, tc := range cases {
		resp, err := c.Classify(context.Background(), tc.utterance, profile, ride)
		require.NoError(t, err)
		require.Equal(t, tc.intent, resp.Intent, "utterance %q", tc.utterance)
		require.NotEmpty(t, resp.ResponseText)
	}
}

func TestStaticClassifierRouteSuggestionShrinksETA(t *testing.T) {
	c := &StaticClassifier{}
	ride := models.DefaultRideStatus()
	ride.ETAMinutes = 12

	resp, err := c.Classify(context.Background(), "any better route?", models.DefaultProfile(), ride)
	require.NoError(t, err)
	require.NotNil(t, resp.NewRouteDetails)
	require.Equal(t, 7, resp.NewRouteDetails.ETAMinutes)

	ride.ETAMinutes = 6
	resp, err = c.Classify(context.Background(), "any better route?", models.DefaultProfile(), ride)
	require.NoError(t, err)
	require.Equal(t, 5, resp.NewRouteDetails.ETAMinutes)
}
