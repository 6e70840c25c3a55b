package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/ferry-watch/internal/domain"
)

var (
	ErrTimeout    = errors.New("browser operation timed out")
	ErrNavigation = errors.New("navigation failed")
	ErrNoMatch    = errors.New("selector matched no elements")
	ErrRejected   = errors.New("element rejected the action")
)

// Page is the subset of a live browser tab the checker drives. Every method
// acts on the first element matching the selector and reports failure as an
// error value.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Count(ctx context.Context, sel domain.Selector) (int, error)
	Click(ctx context.Context, sel domain.Selector) error
	SelectOption(ctx context.Context, sel domain.Selector, label string) error
	Fill(ctx context.Context, sel domain.Selector, value string) error
	Value(ctx context.Context, sel domain.Selector) (string, error)
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Browser is a Page that owns its browser process.
type Browser interface {
	Page
	Close() error
}

// Launcher starts one browser per check.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

const defaultPollInterval = 250 * time.Millisecond

// WaitFor polls until sel matches at least one element or timeout elapses.
// A zero timeout checks exactly once.
func WaitFor(ctx context.Context, page Page, sel domain.Selector, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(timeout)
	for {
		n, err := page.Count(ctx, sel)
		if err == nil && n > 0 {
			return nil
		}
		if errors.Is(err, ErrRejected) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: waiting for %s", ErrTimeout, sel)
		}
		if err := Pause(ctx, min(interval, remaining)); err != nil {
			return err
		}
	}
}

// Pause sleeps for d unless ctx is done first.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
