// Package dispatch delivers out-of-band notifications: caregiver SMS via the
// courier gateway and live event fan-out to connected role views.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Courier sends one text message to one recipient. Best-effort and
// fire-and-forget: callers log failures but never retry or surface them.
type Courier interface {
	Send(ctx context.Context, recipient, message string) error
}

// HTTPCourier posts JSON to an SMS gateway endpoint (Twilio-style relay).
type HTTPCourier struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewHTTPCourier(endpoint, key string) *HTTPCourier {
	return &HTTPCourier{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (c *HTTPCourier) Send(ctx context.Context, recipient, message string) error {
	body := map[string]string{"to": recipient, "body": message}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.Key)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// LogCourier just logs the message. Used when no gateway is configured.
type LogCourier struct {
	Logger *slog.Logger
}

func (c *LogCourier) Send(_ context.Context, recipient, message string) error {
	c.Logger.Info("sms", "to", recipient, "body", message)
	return nil
}
