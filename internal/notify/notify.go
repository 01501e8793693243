// Package notify delivers user-facing failure notices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// Severity classifies a notice.
type Severity string

const (
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notice is one message shown to the user.
type Notice struct {
	Title    string
	Body     string
	Severity Severity
}

func (n Notice) String() string {
	sev := n.Severity
	if sev == "" {
		sev = Error
	}
	if n.Body == "" {
		return fmt.Sprintf("[%s] %s", sev, n.Title)
	}
	return fmt.Sprintf("[%s] %s: %s", sev, n.Title, n.Body)
}

// color returns the embed/attachment color for a severity.
func (s Severity) color() string {
	switch s {
	case Info:
		return "#36a64f"
	case Warning:
		return "#daa038"
	default:
		return "#d00000"
	}
}

// Notifier delivers a notice. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Console writes one line per notice. Writes are serialized.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(_ context.Context, n Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.w, n.String()); err != nil {
		return fmt.Errorf("notify: console: %w", err)
	}
	return nil
}

// Multi fans a notice out to every notifier; one failing does not stop the
// others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Reset drops recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff when the API gives no Retry-After.
	baseBackoff = time.Second
	// maxBackoff caps the backoff.
	maxBackoff = 30 * time.Second
)

// retryOnRateLimit calls fn until it succeeds, returns a non rate-limit
// error, or maxRetries is exhausted. retryAfter reports whether err is a
// rate limit and how long the API asked to wait (zero for unspecified).
func retryOnRateLimit(ctx context.Context, base time.Duration, retryAfter func(error) (time.Duration, bool), fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		wait, limited := retryAfter(err)
		if !limited || attempt == maxRetries {
			return err
		}
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * base
		}
		if wait > maxBackoff {
			wait = maxBackoff
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
