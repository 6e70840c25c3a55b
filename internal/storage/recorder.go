// Package storage keeps an optional write-only history of check results.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/ferry-watch/internal/domain"
)

// Recorder persists check results somewhere outside the process.
type Recorder interface {
	Name() string
	Record(ctx context.Context, result *domain.CheckResult) error
	Ping(ctx context.Context) error
	Close() error
}

// Record is the flattened form of a result shared by every sink.
type Record struct {
	Outcome       string            `json:"outcome"`
	Available     bool              `json:"available"`
	DeparturePort string            `json:"departure_port"`
	ArrivalPort   string            `json:"arrival_port"`
	OutboundDate  string            `json:"outbound_date"`
	ReturnDate    string            `json:"return_date"`
	Signal        domain.PageSignal `json:"signal"`
	Attempts      int               `json:"attempts"`
	Submitted     bool              `json:"submitted"`
	SkippedFields []string          `json:"skipped_fields,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	PageURL       string            `json:"page_url,omitempty"`
	CheckedAt     time.Time         `json:"checked_at"`
}

func NewRecord(r *domain.CheckResult) Record {
	rec := Record{
		Outcome:       r.Outcome(),
		Available:     r.Available,
		DeparturePort: r.Criteria.DeparturePort,
		ArrivalPort:   r.Criteria.ArrivalPort,
		OutboundDate:  r.Criteria.OutboundDate.Format(time.DateOnly),
		ReturnDate:    r.Criteria.ReturnDate.Format(time.DateOnly),
		Signal:        r.Signal,
		SkippedFields: r.Fill.Skipped(),
		FailureReason: r.FailureReason,
		PageURL:       r.PageURL,
		CheckedAt:     r.CheckedAt.UTC(),
	}
	if r.Fill != nil {
		rec.Attempts = r.Fill.Attempts
		rec.Submitted = r.Fill.Submitted
	}
	return rec
}

// PingAll checks every recorder. The map holds one entry per recorder name,
// nil for the healthy ones.
func PingAll(ctx context.Context, recorders []Recorder) map[string]error {
	status := make(map[string]error, len(recorders))
	for _, r := range recorders {
		status[r.Name()] = r.Ping(ctx)
	}
	return status
}

// CloseAll closes every recorder and joins the failures.
func CloseAll(recorders []Recorder) error {
	var errs []error
	for _, r := range recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}
