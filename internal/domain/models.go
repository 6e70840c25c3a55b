package domain

import (
	"strings"
	"time"
)

// SearchCriteria is the single itinerary the checker searches for.
type SearchCriteria struct {
	DeparturePort string
	ArrivalPort   string
	OutboundDate  time.Time
	ReturnDate    time.Time
	OutboundTime  string // display only, e.g. "07:45"
	ReturnTime    string
	Adults        int
	Children      int
	Infants       int
	VehicleType   string
	VehicleSizes  []string // preferred first
}

// Selector is a guess at how a form field or result indicator is marked up.
// Text, when set, keeps only the innermost elements whose text contains it
// (case-insensitive). Deep keeps every element containing the text instead,
// e.g. a select whose options name a port.
type Selector struct {
	CSS  string
	Text string
	Deep bool
}

// CSS builds a plain CSS selector candidate.
func CSS(css string) Selector {
	return Selector{CSS: css}
}

// WithText builds a selector candidate filtered by element text.
func WithText(css, text string) Selector {
	return Selector{CSS: css, Text: text}
}

// Containing builds a candidate matching any element whose text contains text.
func Containing(css, text string) Selector {
	return Selector{CSS: css, Text: text, Deep: true}
}

// Needle is the lower-cased text filter.
func (s Selector) Needle() string {
	return strings.ToLower(strings.TrimSpace(s.Text))
}

func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return s.CSS + `:has-text("` + s.Text + `")`
}

// Snapshot is the rendered results page as captured from the browser.
type Snapshot struct {
	HTML  string
	Text  string
	Title string
	URL   string
}

// PageSignal holds the raw counts both classification channels produced.
type PageSignal struct {
	StructuralAvailable   int      `json:"structural_available"`
	StructuralUnavailable int      `json:"structural_unavailable"`
	LexicalPositive       int      `json:"lexical_positive"`
	LexicalNegative       int      `json:"lexical_negative"`
	MatchedSelectors      []string `json:"matched_selectors,omitempty"`
	MatchedKeywords       []string `json:"matched_keywords,omitempty"`
}

// FieldOutcome reports how a single logical form field was handled.
type FieldOutcome struct {
	Field    string `json:"field"`
	Filled   bool   `json:"filled"`
	Probe    int    `json:"probe"` // index of the winning candidate, -1 when skipped
	Selector string `json:"selector,omitempty"`
	Tried    int    `json:"tried"`
	Reason   string `json:"reason,omitempty"`
}

// FillReport summarises one run of the booking form.
type FillReport struct {
	Attempts     int            `json:"attempts"`
	Fields       []FieldOutcome `json:"fields"`
	Submitted    bool           `json:"submitted"`
	ResultsReady bool           `json:"results_ready"`
}

// Skipped lists the fields no candidate could fill.
func (r *FillReport) Skipped() []string {
	if r == nil {
		return nil
	}
	var names []string
	for _, f := range r.Fields {
		if !f.Filled {
			names = append(names, f.Field)
		}
	}
	return names
}

// CheckResult is the outcome of one availability check.
type CheckResult struct {
	Available     bool           `json:"available"`
	Signal        PageSignal     `json:"signal"`
	Fill          *FillReport    `json:"fill,omitempty"`
	Criteria      SearchCriteria `json:"-"`
	PageTitle     string         `json:"page_title,omitempty"`
	PageURL       string         `json:"page_url,omitempty"`
	CheckedAt     time.Time      `json:"checked_at"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

// Outcome is the label used for metrics and persisted history.
func (r *CheckResult) Outcome() string {
	switch {
	case r.FailureReason != "":
		return OutcomeFailed
	case r.Available:
		return OutcomeAvailable
	default:
		return OutcomeUnavailable
	}
}

const (
	OutcomeAvailable   = "available"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)
