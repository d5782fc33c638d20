package vision

import (
	"context"
	"errors"
	"sync"
	"time"
)

// LatestFrame is a FrameSource fed by the device: the client pushes camera
// frames over the API and the controller pulls the freshest one. Frames
// older than the staleness window are rejected so a description never
// narrates a scene from minutes ago.
type LatestFrame struct {
	mu     sync.RWMutex
	frame  []byte
	at     time.Time
	maxAge time.Duration
}

var ErrNoFrame = errors.New("no recent camera frame available")

func NewLatestFrame(maxAge time.Duration) *LatestFrame {
	if maxAge == 0 {
		maxAge = 30 * time.Second
	}
	return &LatestFrame{maxAge: maxAge}
}

// Push stores the newest frame, replacing any previous one.
func (l *LatestFrame) Push(jpeg []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = append([]byte(nil), jpeg...)
	l.at = time.Now()
}

func (l *LatestFrame) Capture(_ context.Context) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.frame == nil || time.Since(l.at) > l.maxAge {
		return nil, ErrNoFrame
	}
	return append([]byte(nil), l.frame...), nil
}
