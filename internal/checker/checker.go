// Package checker runs one availability check end to end.
package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/classifier"
	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/formfill"
	"github.com/user/ferry-watch/internal/monitoring"
	"github.com/user/ferry-watch/internal/notifier"
	"github.com/user/ferry-watch/internal/storage"
)

var ErrPanic = errors.New("availability check panicked")

// Notifier delivers the availability alert.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// ArtifactStore keeps the results page evidence.
type ArtifactStore interface {
	SaveScreenshot(label string, png []byte) (string, error)
	SaveHTML(label, html string) (string, error)
}

type Options struct {
	Criteria    domain.SearchCriteria
	Operator    string
	BookingLink string

	Launcher   browser.Launcher
	Filler     *formfill.Filler
	Classifier *classifier.Classifier
	Notifier   Notifier
	Recorders  []storage.Recorder
	Artifacts  ArtifactStore // optional

	Metrics *monitoring.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Checker wires the browser, form filler, classifier and notifier together.
type Checker struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func New(opts Options) *Checker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Checker{opts: opts, logger: opts.Logger, now: now}
}

// Run performs one check. A failed booking flow is reported through the
// result; the error is reserved for launch failures and panics.
func (c *Checker) Run(ctx context.Context) (result *domain.CheckResult, err error) {
	start := c.now()
	crit := c.opts.Criteria
	c.logger.Info("starting availability check",
		zap.String("operator", c.opts.Operator),
		zap.String("departure_port", crit.DeparturePort),
		zap.String("arrival_port", crit.ArrivalPort),
		zap.String("outbound_date", crit.OutboundDate.Format(time.DateOnly)),
		zap.String("return_date", crit.ReturnDate.Format(time.DateOnly)),
	)

	b, err := c.opts.Launcher.Launch(ctx)
	if err != nil {
		c.opts.Metrics.IncCheck("error")
		c.logger.Error("failed to launch browser", zap.Error(err))
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			c.logger.Warn("failed to close browser", zap.Error(cerr))
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			c.opts.Metrics.IncCheck("error")
			c.logger.Error("availability check panicked", zap.Any("panic", r), zap.Stack("stack"))
			result, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	result = c.check(ctx, b)
	c.finish(ctx, result, start)
	return result, nil
}

func (c *Checker) check(ctx context.Context, page browser.Page) *domain.CheckResult {
	report, err := c.opts.Filler.Fill(ctx, page)
	if err != nil {
		return c.failed(report, "booking flow", err)
	}
	if skipped := report.Skipped(); len(skipped) > 0 {
		c.logger.Warn("continuing with unfilled fields", zap.Strings("fields", skipped))
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return c.failed(report, "capture results page", err)
	}
	c.logger.Info("results page captured", zap.String("title", snap.Title), zap.String("url", snap.URL))
	c.saveArtifacts(ctx, page, snap)

	verdict, err := c.opts.Classifier.Classify(snap, c.now())
	if err != nil {
		return c.failed(report, "classify results page", err)
	}
	verdict.Fill = report
	verdict.Criteria = c.opts.Criteria

	if verdict.Available {
		c.logger.Info("ferry availability found")
		c.notify(ctx, &verdict)
	} else {
		c.logger.Info("no ferry availability found at this time")
	}
	return &verdict
}

func (c *Checker) failed(report *domain.FillReport, stage string, err error) *domain.CheckResult {
	c.logger.Error("availability check failed",
		zap.String("stage", stage),
		zap.String("kind", failureKind(err)),
		zap.Error(err),
	)
	return &domain.CheckResult{
		Fill:          report,
		Criteria:      c.opts.Criteria,
		CheckedAt:     c.now(),
		FailureReason: fmt.Sprintf("%s: %v", stage, err),
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, browser.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, browser.ErrNavigation):
		return "navigation"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}

// notify never changes the verdict; failures are logged and counted.
func (c *Checker) notify(ctx context.Context, result *domain.CheckResult) {
	text := notifier.FormatAvailability(c.opts.Operator, c.opts.BookingLink, c.opts.Criteria, result.CheckedAt)
	err := c.opts.Notifier.Notify(ctx, text)
	switch {
	case err == nil:
		c.opts.Metrics.IncNotification("sent")
	case errors.Is(err, notifier.ErrMissingCredentials):
		c.opts.Metrics.IncNotification("skipped")
		c.logger.Warn("availability notification skipped", zap.Error(err))
	default:
		c.opts.Metrics.IncNotification("failed")
		c.logger.Error("availability notification failed", zap.Error(err))
	}
}

func (c *Checker) saveArtifacts(ctx context.Context, page browser.Page, snap domain.Snapshot) {
	if c.opts.Artifacts == nil {
		return
	}
	if path, err := c.opts.Artifacts.SaveHTML("results", snap.HTML); err != nil {
		c.logger.Warn("results page not saved", zap.Error(err))
	} else {
		c.logger.Info("results page saved", zap.String("path", path))
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		c.logger.Warn("results screenshot failed", zap.Error(err))
		return
	}
	if path, err := c.opts.Artifacts.SaveScreenshot("results", png); err != nil {
		c.logger.Warn("results screenshot not saved", zap.Error(err))
	} else {
		c.logger.Info("screenshot saved", zap.String("label", "results"), zap.String("path", path))
	}
}

func (c *Checker) finish(ctx context.Context, result *domain.CheckResult, start time.Time) {
	for _, r := range c.opts.Recorders {
		if err := r.Record(ctx, result); err != nil {
			c.opts.Metrics.IncRecordError(r.Name())
			c.logger.Warn("failed to record check result", zap.String("sink", r.Name()), zap.Error(err))
		}
	}

	m := c.opts.Metrics
	s := result.Signal
	m.IncCheck(result.Outcome())
	m.ObserveSignal(s.StructuralAvailable, s.StructuralUnavailable, s.LexicalPositive, s.LexicalNegative)
	m.CheckDuration.Observe(c.now().Sub(start).Seconds())
	m.LastCheckTimestamp.Set(float64(result.CheckedAt.Unix()))

	c.logger.Info("availability check completed",
		zap.String("outcome", result.Outcome()),
		zap.Duration("duration", c.now().Sub(start)),
	)
}
