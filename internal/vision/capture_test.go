package vision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/ride-companion/internal/assist"
	"github.com/example/ride-companion/internal/logging"
	"github.com/example/ride-companion/internal/models"
)

type stubDescriber struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (d *stubDescriber) Describe(_ context.Context, _ []byte, _ models.PassengerProfile) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.reply, d.err
}

func (d *stubDescriber) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type staticFrame []byte

func (f staticFrame) Capture(context.Context) ([]byte, error) { return f, nil }

type postLog struct {
	mu    sync.Mutex
	texts []string
}

func (p *postLog) post(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
}

func (p *postLog) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

func newTestController(t *testing.T, d assist.Describer, frames FrameSource, cooldown time.Duration, posts *postLog) *Controller {
	t.Helper()
	c := NewController(Config{
		Logger:           logging.Discard(),
		Frames:           frames,
		Describer:        d,
		Profile:          models.DefaultProfile,
		Post:             posts.post,
		CooldownOverText: func() string { return "ready again" },
		Settle:           time.Millisecond,
		Cooldown:         cooldown,
	})
	t.Cleanup(c.Close)
	return c
}

func TestRequestPostsDescription(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{reply: "A quiet street with trees on both sides."}
	c := newTestController(t, d, staticFrame("jpeg"), time.Minute, posts)

	c.Request()
	require.Eventually(t, func() bool { return len(posts.all()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, "Here's what I see: A quiet street with trees on both sides.", posts.all()[0])
	require.False(t, c.CoolingDown())
}

func TestRequestSuppressedWhileInFlight(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{reply: "Trees."}
	c := NewController(Config{
		Logger:    logging.Discard(),
		Frames:    staticFrame("jpeg"),
		Describer: d,
		Profile:   models.DefaultProfile,
		Post:      posts.post,
		Settle:    50 * time.Millisecond, // long enough to overlap the triggers
		Cooldown:  time.Minute,
	})
	t.Cleanup(c.Close)

	c.Request()
	c.Request()
	c.Request()

	require.Eventually(t, func() bool { return len(posts.all()) == 1 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Len(t, posts.all(), 1)
	require.Equal(t, 1, d.callCount())
}

func TestRateLimitedReplyEntersCooldown(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{reply: assist.RateLimitedMessage}
	c := newTestController(t, d, staticFrame("jpeg"), time.Minute, posts)

	c.Request()
	require.Eventually(t, c.CoolingDown, time.Second, time.Millisecond)
	require.Equal(t, []string{assist.RateLimitedMessage}, posts.all())

	// requests during the window are swallowed without a capture
	c.Request()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, d.callCount())
	require.Len(t, posts.all(), 1)
}

func TestCooldownExpiryPostsReadyMessage(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{reply: assist.RateLimitedMessage}
	c := newTestController(t, d, staticFrame("jpeg"), 20*time.Millisecond, posts)

	c.Request()
	require.Eventually(t, func() bool {
		got := posts.all()
		return len(got) == 2 && got[1] == "ready again"
	}, time.Second, time.Millisecond)
	require.False(t, c.CoolingDown())

	// the window is over: a new request captures again
	d.mu.Lock()
	d.reply = "A bridge ahead."
	d.mu.Unlock()
	c.Request()
	require.Eventually(t, func() bool { return len(posts.all()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, "Here's what I see: A bridge ahead.", posts.all()[2])
}

func TestDescribeFailurePostsApology(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{err: errors.New("model unavailable")}
	c := newTestController(t, d, staticFrame("jpeg"), time.Minute, posts)

	c.Request()
	require.Eventually(t, func() bool { return len(posts.all()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, captureFailedMessage, posts.all()[0])
	require.False(t, c.CoolingDown())
}

func TestCaptureFailurePostsApology(t *testing.T) {
	posts := &postLog{}
	d := &stubDescriber{reply: "unused"}
	frames := NewLatestFrame(time.Minute) // nothing pushed yet
	c := newTestController(t, d, frames, time.Minute, posts)

	c.Request()
	require.Eventually(t, func() bool { return len(posts.all()) == 1 }, time.Second, time.Millisecond)
	require.Equal(t, captureFailedMessage, posts.all()[0])
	require.Zero(t, d.callCount())
}

func TestLatestFrameStaleness(t *testing.T) {
	f := NewLatestFrame(10 * time.Millisecond)

	_, err := f.Capture(context.Background())
	require.ErrorIs(t, err, ErrNoFrame)

	f.Push([]byte("fresh"))
	frame, err := f.Capture(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("fresh"), frame)

	time.Sleep(20 * time.Millisecond)
	_, err = f.Capture(context.Background())
	require.ErrorIs(t, err, ErrNoFrame)
}
