// Package inspect reports what the booking page looks like to the selectors,
// for use when the site changes and fields stop filling.
package inspect

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/domain"
)

var (
	elementKinds = []struct {
		name string
		sel  domain.Selector
	}{
		{"forms", domain.CSS("form")},
		{"inputs", domain.CSS("input")},
		{"selects", domain.CSS("select")},
		{"buttons", domain.CSS("button")},
	}
	bookingProbes = []domain.Selector{
		domain.CSS(`input[name*="departure"]`),
		domain.CSS(`input[name*="arrival"]`),
		domain.CSS(`input[name*="date"]`),
		domain.CSS(`select[name*="port"]`),
		domain.CSS(`select[name*="departure"]`),
		domain.CSS(`select[name*="arrival"]`),
		domain.WithText("button", "Search"),
		domain.WithText("button", "Book"),
		domain.CSS(".booking"),
		domain.CSS(".search"),
		domain.CSS(".ferry"),
	}
)

// Config says where to look and what to look for.
type Config struct {
	URL    string
	Settle time.Duration
	Ports  []string
}

// ArtifactStore keeps the captured page.
type ArtifactStore interface {
	SaveScreenshot(label string, png []byte) (string, error)
	SaveHTML(label, html string) (string, error)
}

type Probe struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
	Err      string `json:"error,omitempty"`
}

type Report struct {
	Title          string          `json:"title"`
	URL            string          `json:"url"`
	Elements       map[string]int  `json:"elements"`
	Probes         []Probe         `json:"probes"`
	PortsSeen      map[string]bool `json:"ports_seen"`
	ScreenshotPath string          `json:"screenshot_path,omitempty"`
	HTMLPath       string          `json:"html_path,omitempty"`
}

// Run loads the booking page and collects the report. Only navigation and
// snapshot failures are errors; probe failures are recorded in the report.
func Run(ctx context.Context, page browser.Page, cfg Config, store ArtifactStore, logger *zap.Logger) (*Report, error) {
	logger.Info("navigating to booking page", zap.String("url", cfg.URL))
	if err := page.Navigate(ctx, cfg.URL); err != nil {
		return nil, fmt.Errorf("open booking page: %w", err)
	}
	if err := browser.Pause(ctx, cfg.Settle); err != nil {
		return nil, err
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}
	report := &Report{
		Title:     snap.Title,
		URL:       snap.URL,
		Elements:  make(map[string]int, len(elementKinds)),
		PortsSeen: make(map[string]bool, len(cfg.Ports)),
	}

	for _, kind := range elementKinds {
		n, err := page.Count(ctx, kind.sel)
		if err != nil {
			logger.Warn("element count failed", zap.String("kind", kind.name), zap.Error(err))
		}
		report.Elements[kind.name] = n
	}
	for _, sel := range bookingProbes {
		p := Probe{Selector: sel.String()}
		p.Count, err = page.Count(ctx, sel)
		if err != nil {
			p.Err = err.Error()
		}
		report.Probes = append(report.Probes, p)
	}
	for _, port := range cfg.Ports {
		report.PortsSeen[port] = strings.Contains(snap.Text, port)
	}

	if store != nil {
		if report.HTMLPath, err = store.SaveHTML("inspect", snap.HTML); err != nil {
			logger.Warn("page content not saved", zap.Error(err))
		}
		if png, err := page.Screenshot(ctx); err != nil {
			logger.Warn("screenshot failed", zap.Error(err))
		} else if report.ScreenshotPath, err = store.SaveScreenshot("inspect", png); err != nil {
			logger.Warn("screenshot not saved", zap.Error(err))
		}
	}
	return report, nil
}

// Render writes the report as tables.
func Render(w io.Writer, r *Report) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.AppendHeader(table.Row{"Page", ""})
	summary.AppendRow(table.Row{"Title", r.Title})
	summary.AppendRow(table.Row{"URL", r.URL})
	for _, kind := range elementKinds {
		summary.AppendRow(table.Row{kind.name, r.Elements[kind.name]})
	}
	for _, port := range slices.Sorted(maps.Keys(r.PortsSeen)) {
		summary.AppendRow(table.Row{fmt.Sprintf("%q in text", port), mark(r.PortsSeen[port])})
	}
	if r.ScreenshotPath != "" {
		summary.AppendRow(table.Row{"Screenshot", r.ScreenshotPath})
	}
	if r.HTMLPath != "" {
		summary.AppendRow(table.Row{"Content", r.HTMLPath})
	}
	summary.SetStyle(table.StyleRounded)
	summary.Render()

	probes := table.NewWriter()
	probes.SetOutputMirror(w)
	probes.AppendHeader(table.Row{"Selector", "Matches", "Found"})
	for _, p := range r.Probes {
		found := mark(p.Count > 0)
		if p.Err != "" {
			found = "error: " + p.Err
		}
		probes.AppendRow(table.Row{p.Selector, p.Count, found})
	}
	probes.SetStyle(table.StyleRounded)
	probes.Render()
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
