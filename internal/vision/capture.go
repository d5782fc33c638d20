// Package vision owns the one-shot capture flow behind "describe my
// surroundings": settle delay for camera warm-up, a single capture in flight,
// and the rate-limit cooldown window.
package vision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/models"
	"github.com/example/ride-companion/internal/observability"
)

// FrameSource produces one camera frame per call. The camera itself lives on
// the device side; this is only the handle the controller pulls from.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

const captureFailedMessage = "I'm sorry, I'm having trouble analyzing the view right now. Please try again in a moment."

// Controller debounces capture triggers and applies the cooldown policy.
// Each trigger advances a monotonic token; a capture in flight or an active
// cooldown suppresses the request entirely.
type Controller struct {
	mu sync.Mutex

	logger    *slog.Logger
	frames    FrameSource
	describer assist.Describer
	profileFn func() models.PassengerProfile
	post      func(text string)
	coolOver  func() string

	settle   time.Duration
	cooldown time.Duration

	token         uint64
	inFlight      bool
	coolingDown   bool
	cooldownTimer *time.Timer
}

// Config wires a Controller.
type Config struct {
	Logger    *slog.Logger
	Frames    FrameSource
	Describer assist.Describer
	// Profile supplies the passenger context sent with each frame.
	Profile func() models.PassengerProfile
	// Post appends an assistant message to the conversation.
	Post func(text string)
	// CooldownOverText is posted when the cooldown window ends.
	CooldownOverText func() string
	Settle           time.Duration
	Cooldown         time.Duration
}

func NewController(cfg Config) *Controller {
	if cfg.Settle == 0 {
		cfg.Settle = 1200 * time.Millisecond
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}
	c := &Controller{
		logger:    cfg.Logger,
		frames:    cfg.Frames,
		describer: cfg.Describer,
		profileFn: cfg.Profile,
		post:      cfg.Post,
		settle:    cfg.Settle,
		cooldown:  cfg.Cooldown,
	}
	c.coolOver = cfg.CooldownOverText
	if c.coolOver == nil {
		c.coolOver = func() string { return "" }
	}
	return c
}

// Request arms one capture. Safe from any goroutine; suppressed while a
// capture is in flight or a cooldown is active.
func (c *Controller) Request() {
	c.mu.Lock()
	c.token++
	token := c.token
	if c.inFlight || c.coolingDown {
		c.mu.Unlock()
		c.logger.Debug("vision request suppressed", "token", token, "cooling_down", c.coolingDown)
		return
	}
	c.inFlight = true
	c.mu.Unlock()

	go c.run(token)
}

func (c *Controller) run(token uint64) {
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	// settle delay: give the camera time to warm up before grabbing a frame
	time.Sleep(c.settle)

	ctx := context.Background()
	frame, err := c.frames.Capture(ctx)
	if err != nil {
		c.logger.Warn("frame capture failed", "token", token, "error", err)
		c.post(captureFailedMessage)
		return
	}

	description, err := c.describer.Describe(ctx, frame, c.profileFn())
	if err != nil {
		c.logger.Warn("scene description failed", "token", token, "error", err)
		c.post(captureFailedMessage)
		return
	}

	if assist.IsRateLimited(description) {
		c.post(description)
		c.enterCooldown()
		return
	}
	c.post("Here's what I see: " + description)
}

func (c *Controller) enterCooldown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coolingDown = true
	observability.VisionCooldowns.Inc()
	// a new cooldown always replaces a pending one so a stale expiry cannot
	// fire after a more recent retrigger
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
	}
	c.cooldownTimer = time.AfterFunc(c.cooldown, func() {
		c.mu.Lock()
		c.coolingDown = false
		c.cooldownTimer = nil
		c.mu.Unlock()
		if text := c.coolOver(); text != "" {
			c.post(text)
		}
	})
}

// CoolingDown reports whether capture attempts are currently suppressed by
// the rate-limit window.
func (c *Controller) CoolingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coolingDown
}

// Close cancels a pending cooldown timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
}
