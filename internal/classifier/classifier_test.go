package classifier

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/ferry-watch/internal/domain"
)

var checkedAt = time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)

func classify(t *testing.T, c *Classifier, html string) domain.CheckResult {
	t.Helper()
	result, err := c.Classify(domain.Snapshot{HTML: html, Title: "Results", URL: "https://booking.example/results"}, checkedAt)
	require.NoError(t, err)
	return result
}

func TestSoldOutPageIsUnavailable(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	result := classify(t, c, `<html><body>
		<div class="sailing"><button>Book</button></div>
		<p>Sorry, the 07:45 sailing is sold out.</p>
	</body></html>`)

	require.False(t, result.Available)
	require.Equal(t, 1, result.Signal.StructuralAvailable)
	require.Equal(t, 1, result.Signal.StructuralUnavailable)
	require.Equal(t, 1, result.Signal.LexicalNegative)
	require.Equal(t, checkedAt, result.CheckedAt)
	require.Equal(t, "Results", result.PageTitle)
}

func TestPricedPageIsAvailable(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	result := classify(t, c, `<html><body>
		<div class="price">£24.50</div><div class="price">£31.00</div><div class="price">£48.20</div>
		<a href="#">Book now</a> <a href="#">Book now</a>
	</body></html>`)

	require.True(t, result.Available)
	require.Equal(t, 3, result.Signal.StructuralAvailable)
	require.Zero(t, result.Signal.StructuralUnavailable)
	require.Contains(t, result.Signal.MatchedKeywords, "+book now")
}

func TestEmptyPageIsUnavailable(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	result := classify(t, c, `<html><body><p>Welcome to the ferry booking site</p></body></html>`)

	require.False(t, result.Available)
	require.Equal(t, domain.PageSignal{}, result.Signal)
}

func TestNegativePhrasesDoNotCountAsPositive(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	s, err := c.Signal(domain.Snapshot{Text: "Not available. Unavailable on this date."})
	require.NoError(t, err)
	require.Zero(t, s.LexicalPositive)
	require.Equal(t, 2, s.LexicalNegative)
}

func TestScriptAndStyleIgnored(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	s, err := c.Signal(domain.Snapshot{HTML: `<html><head><style>.sold-out{color:red}</style></head><body>
		<script>var msg = "sold out";</script>
		<p>Timetable</p>
	</body></html>`})
	require.NoError(t, err)
	require.Zero(t, s.StructuralUnavailable)
	require.Zero(t, s.LexicalNegative)
}

func TestUnavailabilityTextCountsInnermostOnly(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	s, err := c.Signal(domain.Snapshot{HTML: `<html><body><div class="card"><div><p>Fully booked</p></div></div></body></html>`})
	require.NoError(t, err)
	require.Equal(t, 1, s.StructuralUnavailable)
}

func TestButtonTextInsideSpanCounts(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	result := classify(t, c, `<html><body>
		<button class="btn"><span>Book</span></button>
		<button class="btn"><span>Select</span></button>
	</body></html>`)

	require.True(t, result.Available)
	require.Equal(t, 2, result.Signal.StructuralAvailable)
	require.Equal(t, []string{`button:has-text("Book")=1`, `button:has-text("Select")=1`}, result.Signal.MatchedSelectors)
}

func TestTextSelectorSkipsWrappersOfSameKind(t *testing.T) {
	root := doc(t, `<html><body>
		<div class="card"><div class="card-body"><span>Sold out</span></div></div>
		<div class="notice"><em>Sold out</em></div>
	</body></html>`)
	require.Equal(t, 2, Count(root, domain.WithText("div", "sold out")))
	require.Equal(t, 2, Count(root, domain.WithText("body *", "sold out")))
	require.Equal(t, 3, Count(root, domain.Containing("div", "sold out")))
}

func TestFirstMatchMode(t *testing.T) {
	html := `<html><body><span class="available">Yes</span><span class="price">1</span><span class="price">2</span></body></html>`

	s, err := New(DefaultPolicy(), true, zaptest.NewLogger(t)).Signal(domain.Snapshot{HTML: html})
	require.NoError(t, err)
	require.Equal(t, 3, s.StructuralAvailable)

	s, err = New(DefaultPolicy(), false, zaptest.NewLogger(t)).Signal(domain.Snapshot{HTML: html})
	require.NoError(t, err)
	require.Equal(t, 1, s.StructuralAvailable)
	require.Equal(t, []string{".available=1"}, s.MatchedSelectors)
}

func TestVisibleTextPreferredOverMarkup(t *testing.T) {
	c := New(DefaultPolicy(), true, zaptest.NewLogger(t))
	s, err := c.Signal(domain.Snapshot{
		HTML: `<html><body><p hidden>Sold out</p></body></html>`,
		Text: "Select a fare",
	})
	require.NoError(t, err)
	require.Zero(t, s.LexicalNegative)
	require.Equal(t, 2, s.LexicalPositive)
}

func TestPolicyDecide(t *testing.T) {
	strict := Policy{MinStructural: 2, MinLexical: 3}

	tests := []struct {
		name   string
		policy Policy
		signal domain.PageSignal
		want   bool
	}{
		{"nothing", DefaultPolicy(), domain.PageSignal{}, false},
		{"structural veto", DefaultPolicy(), domain.PageSignal{StructuralAvailable: 9, LexicalPositive: 9, StructuralUnavailable: 1}, false},
		{"structural threshold", strict, domain.PageSignal{StructuralAvailable: 2}, true},
		{"below structural threshold", strict, domain.PageSignal{StructuralAvailable: 1, LexicalPositive: 2}, false},
		{"lexical threshold", strict, domain.PageSignal{LexicalPositive: 3}, true},
		{"corroborated", DefaultPolicy(), domain.PageSignal{StructuralAvailable: 1, LexicalPositive: 1}, true},
		{"lexical negative ignored by default", DefaultPolicy(), domain.PageSignal{StructuralAvailable: 2, LexicalNegative: 1}, true},
		{"lexical veto", Policy{MinStructural: 2, MinLexical: 3, NegativeKeywordVeto: true}, domain.PageSignal{StructuralAvailable: 2, LexicalNegative: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.policy.Decide(tt.signal))
		})
	}
}

func doc(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d.Selection
}
