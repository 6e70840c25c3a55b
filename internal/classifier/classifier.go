// Package classifier decides from a rendered results page whether sailings
// can be booked.
package classifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/domain"
)

// Classifier scores a results page on element counts and visible text.
type Classifier struct {
	policy Policy
	// exhaustive sums every selector's matches; otherwise the first selector
	// with any match provides the count.
	exhaustive bool
	logger     *zap.Logger
}

func New(policy Policy, exhaustive bool, logger *zap.Logger) *Classifier {
	return &Classifier{policy: policy, exhaustive: exhaustive, logger: logger}
}

// Classify builds the verdict for snap.
func (c *Classifier) Classify(snap domain.Snapshot, checkedAt time.Time) (domain.CheckResult, error) {
	signal, err := c.Signal(snap)
	if err != nil {
		return domain.CheckResult{}, err
	}
	result := domain.CheckResult{
		Available: c.policy.Decide(signal),
		Signal:    signal,
		PageTitle: snap.Title,
		PageURL:   snap.URL,
		CheckedAt: checkedAt,
	}
	c.logger.Info("page classified",
		zap.Bool("available", result.Available),
		zap.Int("structural_available", signal.StructuralAvailable),
		zap.Int("structural_unavailable", signal.StructuralUnavailable),
		zap.Int("lexical_positive", signal.LexicalPositive),
		zap.Int("lexical_negative", signal.LexicalNegative),
		zap.Strings("matched_selectors", signal.MatchedSelectors),
		zap.Strings("matched_keywords", signal.MatchedKeywords),
	)
	return result, nil
}

// Signal counts both channels without deciding.
func (c *Classifier) Signal(snap domain.Snapshot) (domain.PageSignal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return domain.PageSignal{}, fmt.Errorf("parse results page: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()

	var s domain.PageSignal
	s.StructuralAvailable = c.structural(doc.Selection, availableSelectors, &s.MatchedSelectors)
	s.StructuralUnavailable = c.structural(doc.Selection, unavailableSelectors, &s.MatchedSelectors)

	text := snap.Text
	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	}
	s.LexicalPositive, s.LexicalNegative = lexical(strings.ToLower(text), &s.MatchedKeywords)
	return s, nil
}

func (c *Classifier) structural(root *goquery.Selection, selectors []domain.Selector, matched *[]string) int {
	total := 0
	for _, sel := range selectors {
		n := Count(root, sel)
		if n == 0 {
			continue
		}
		*matched = append(*matched, fmt.Sprintf("%s=%d", sel, n))
		total += n
		if !c.exhaustive {
			break
		}
	}
	return total
}

// lexical counts distinct keywords in lower-cased text.
func lexical(text string, matched *[]string) (positive, negative int) {
	for _, kw := range negativeKeywords {
		if strings.Contains(text, kw) {
			negative++
			*matched = append(*matched, "-"+kw)
			text = strings.ReplaceAll(text, kw, " ")
		}
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw) {
			positive++
			*matched = append(*matched, "+"+kw)
		}
	}
	return positive, negative
}

// Count returns how many elements under root match sel.
func Count(root *goquery.Selection, sel domain.Selector) int {
	return Match(root, sel).Length()
}

// Match finds the elements under root matching sel, the way the live page
// resolves it: text filters keep the innermost element matching sel.CSS
// unless sel is Deep.
func Match(root *goquery.Selection, sel domain.Selector) *goquery.Selection {
	found := root.Find(sel.CSS)
	needle := sel.Needle()
	if needle == "" {
		return found
	}
	return found.FilterFunction(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(s.Text()), needle) {
			return false
		}
		if sel.Deep {
			return true
		}
		// Only a nested element of the same selector holding the text
		// disqualifies s; <button><span>Book</span></button> still matches.
		nested := s.Find(sel.CSS).FilterFunction(func(_ int, d *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(d.Text()), needle)
		})
		return nested.Length() == 0
	})
}
