// Package formfill drives the booking form through best-effort selector probes.
package formfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/monitoring"
)

// Config holds the booking page address and every wait the flow makes.
type Config struct {
	URL               string
	NavigationTimeout time.Duration
	FormTimeout       time.Duration
	ProbeTimeout      time.Duration
	ResultsTimeout    time.Duration
	InitialSettle     time.Duration
	FieldSettle       time.Duration
	DateSettle        time.Duration
	ResultsSettle     time.Duration
	MaxAttempts       int
	RetryCooldown     time.Duration
	PollInterval      time.Duration
}

// ScreenshotSaver persists checkpoint screenshots.
type ScreenshotSaver interface {
	SaveScreenshot(label string, png []byte) (string, error)
}

// Filler runs the navigate, fill and submit sequence against one page.
type Filler struct {
	cfg     Config
	fields  []Field
	submit  Field
	shots   ScreenshotSaver
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewFiller builds the field list for criteria. shots may be nil.
func NewFiller(cfg Config, criteria domain.SearchCriteria, shots ScreenshotSaver, metrics *monitoring.Metrics, logger *zap.Logger) *Filler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Filler{
		cfg:     cfg,
		fields:  Fields(criteria, cfg.DateSettle),
		submit:  SearchField(),
		shots:   shots,
		metrics: metrics,
		logger:  logger,
	}
}

// Fill runs the whole flow, retrying it on navigation or form-wait failures.
// The returned report describes the last attempt.
func (f *Filler) Fill(ctx context.Context, page browser.Page) (*domain.FillReport, error) {
	var (
		report  *domain.FillReport
		lastErr error
	)
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		f.metrics.FillAttemptsTotal.Inc()
		report, lastErr = f.attempt(ctx, page)
		report.Attempts = attempt
		if lastErr == nil {
			return report, nil
		}

		f.logger.Warn("booking flow attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxAttempts),
			zap.Error(lastErr),
		)
		f.capture(ctx, page, "error")
		if ctx.Err() != nil || attempt == f.cfg.MaxAttempts {
			break
		}
		f.logger.Info("retrying booking flow", zap.Duration("cooldown", f.cfg.RetryCooldown))
		if err := browser.Pause(ctx, f.cfg.RetryCooldown); err != nil {
			lastErr = err
			break
		}
	}
	return report, fmt.Errorf("booking flow failed after %d attempt(s): %w", report.Attempts, lastErr)
}

func (f *Filler) attempt(ctx context.Context, page browser.Page) (*domain.FillReport, error) {
	report := &domain.FillReport{}

	f.logger.Info("opening booking page", zap.String("url", f.cfg.URL))
	if err := page.Navigate(ctx, f.cfg.URL); err != nil {
		return report, fmt.Errorf("open booking page: %w", err)
	}
	if err := browser.Pause(ctx, f.cfg.InitialSettle); err != nil {
		return report, err
	}
	if err := browser.WaitFor(ctx, page, formSelector, f.cfg.FormTimeout, f.cfg.PollInterval); err != nil {
		return report, fmt.Errorf("wait for booking form: %w", err)
	}
	f.capture(ctx, page, "initial")

	for _, field := range f.fields {
		report.Fields = append(report.Fields, f.FillField(ctx, page, field))
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	f.capture(ctx, page, "pre_submit")
	submitted := f.FillField(ctx, page, f.submit)
	report.Fields = append(report.Fields, submitted)
	report.Submitted = submitted.Filled
	if !report.Submitted {
		f.metrics.SubmitFailures.Inc()
		f.logger.Error("search could not be submitted, checking the page anyway",
			zap.Int("candidates_tried", submitted.Tried),
			zap.String("reason", submitted.Reason),
		)
	}

	f.logger.Info("waiting for search results")
	if err := browser.Pause(ctx, f.cfg.ResultsSettle); err != nil {
		return report, err
	}
	err := browser.WaitFor(ctx, page, resultsSelector, f.cfg.ResultsTimeout, f.cfg.PollInterval)
	switch {
	case err == nil:
		report.ResultsReady = true
	case ctx.Err() != nil:
		return report, ctx.Err()
	default:
		f.logger.Warn("results did not load within timeout", zap.Error(err))
		f.capture(ctx, page, "timeout")
	}
	return report, nil
}

// FillField tries the field's candidates in order and stops at the first one
// that matches an element and accepts the action.
func (f *Filler) FillField(ctx context.Context, page browser.Page, field Field) domain.FieldOutcome {
	out := domain.FieldOutcome{Field: field.Name, Probe: -1}
	for i, sel := range field.Candidates {
		out.Tried++
		err := f.probe(ctx, page, field, sel)
		if err == nil {
			err = field.Action(ctx, page, sel)
		}
		if err == nil {
			out.Filled, out.Probe, out.Selector, out.Reason = true, i, sel.String(), ""
			break
		}
		out.Reason = err.Error()
		f.logger.Debug("candidate failed",
			zap.String("field", field.Name),
			zap.String("selector", sel.String()),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	f.metrics.IncFieldFill(field.Name, out.Filled)
	if out.Filled {
		f.logger.Info("field filled",
			zap.String("field", field.Name),
			zap.String("selector", out.Selector),
		)
		_ = browser.Pause(ctx, f.cfg.FieldSettle)
		return out
	}
	f.logger.Log(skipLevel(field.Importance), "field could not be filled",
		zap.String("field", field.Name),
		zap.String("importance", field.Importance.String()),
		zap.Int("candidates_tried", out.Tried),
		zap.String("reason", out.Reason),
	)
	return out
}

func (f *Filler) probe(ctx context.Context, page browser.Page, field Field, sel domain.Selector) error {
	if field.Wait {
		return browser.WaitFor(ctx, page, sel, f.cfg.ProbeTimeout, f.cfg.PollInterval)
	}
	n, err := page.Count(ctx, sel)
	if err != nil {
		return err
	}
	if n == 0 {
		return browser.ErrNoMatch
	}
	return nil
}

// capture saves a checkpoint screenshot. Failures are only logged.
func (f *Filler) capture(ctx context.Context, page browser.Page, label string) {
	if f.shots == nil || errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		f.logger.Debug("screenshot failed", zap.String("label", label), zap.Error(err))
		return
	}
	path, err := f.shots.SaveScreenshot(label, png)
	if err != nil {
		f.logger.Warn("screenshot not saved", zap.String("label", label), zap.Error(err))
		return
	}
	f.logger.Info("screenshot saved", zap.String("label", label), zap.String("path", path))
}

func skipLevel(i Importance) zapcore.Level {
	switch i {
	case Essential:
		return zapcore.ErrorLevel
	case Standard:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
