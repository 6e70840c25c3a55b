// Package browsertest provides an in-memory browser.Page over static HTML.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/classifier"
	"github.com/user/ferry-watch/internal/domain"
)

// Page answers selector queries from a parsed HTML document. Faults and
// Panics are keyed by "<op> <selector>", e.g. "click #searchButton" or
// "navigate" / "snapshot" / "screenshot" for page-wide operations.
type Page struct {
	mu     sync.Mutex
	doc    *goquery.Document
	html   string
	values map[string]string

	Title  string
	URL    string
	Faults map[string]error
	Panics map[string]any

	// Accept decides whether a Fill value sticks. A rejected value leaves the
	// field empty, like a date input given a format it cannot parse.
	Accept func(sel domain.Selector, value string) bool
	// OnClick runs after a successful click, e.g. to swap in a results page.
	OnClick func(p *Page, sel domain.Selector)

	calls  []string
	closed int
}

var _ browser.Browser = (*Page)(nil)

// New parses html into a fake page.
func New(html string) *Page {
	p := &Page{
		values: make(map[string]string),
		Faults: make(map[string]error),
		Panics: make(map[string]any),
	}
	p.setHTML(html)
	return p
}

// SetHTML replaces the document and forgets entered values.
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setHTML(html)
}

func (p *Page) setHTML(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("browsertest: parse html: %v", err))
	}
	p.doc = doc
	p.html = html
	p.values = make(map[string]string)
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
}

// Calls returns the operations performed so far, in order.
func (p *Page) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Closed reports how many times Close was called.
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// EnteredValue returns what Fill or SelectOption stored for sel.
func (p *Page) EnteredValue(sel domain.Selector) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[sel.String()]
}

func (p *Page) record(op string, sel *domain.Selector) error {
	key := op
	if sel != nil {
		key = op + " " + sel.String()
	}
	p.calls = append(p.calls, key)
	if v, ok := p.Panics[key]; ok {
		panic(v)
	}
	return p.Faults[key]
}

func (p *Page) matches(sel domain.Selector) *goquery.Selection {
	return classifier.Match(p.doc.Selection, sel)
}

func (p *Page) first(op string, sel domain.Selector) (*goquery.Selection, error) {
	if err := p.record(op, &sel); err != nil {
		return nil, err
	}
	m := p.matches(sel)
	if m.Length() == 0 {
		return nil, fmt.Errorf("%s %s: %w", op, sel, browser.ErrNoMatch)
	}
	return m.First(), nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("navigate", nil); err != nil {
		return err
	}
	if p.URL == "" {
		p.URL = url
	}
	return ctx.Err()
}

func (p *Page) Count(ctx context.Context, sel domain.Selector) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("count", &sel); err != nil {
		return 0, err
	}
	return p.matches(sel).Length(), ctx.Err()
}

func (p *Page) Click(ctx context.Context, sel domain.Selector) error {
	hook, err := p.click(sel)
	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, sel)
	}
	return ctx.Err()
}

func (p *Page) click(sel domain.Selector) (func(*Page, domain.Selector), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.first("click", sel); err != nil {
		return nil, err
	}
	return p.OnClick, nil
}

func (p *Page) SelectOption(ctx context.Context, sel domain.Selector, label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.first("select", sel)
	if err != nil {
		return err
	}
	if goquery.NodeName(el) != "select" {
		return fmt.Errorf("select %s: %w: not a select element", sel, browser.ErrRejected)
	}
	want := strings.ToLower(strings.TrimSpace(label))
	var value string
	found := false
	el.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if strings.ToLower(strings.TrimSpace(opt.Text())) != want {
			return true
		}
		value, found = opt.AttrOr("value", strings.TrimSpace(opt.Text())), true
		return false
	})
	if !found {
		return fmt.Errorf("select %s: %w: option not found: %s", sel, browser.ErrRejected, label)
	}
	p.values[sel.String()] = value
	return ctx.Err()
}

func (p *Page) Fill(ctx context.Context, sel domain.Selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.first("fill", sel); err != nil {
		return err
	}
	if p.Accept != nil && !p.Accept(sel, value) {
		value = ""
	}
	p.values[sel.String()] = value
	return ctx.Err()
}

func (p *Page) Value(ctx context.Context, sel domain.Selector) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, err := p.first("value", sel)
	if err != nil {
		return "", err
	}
	if v, ok := p.values[sel.String()]; ok {
		return v, ctx.Err()
	}
	return el.AttrOr("value", ""), ctx.Err()
}

func (p *Page) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("snapshot", nil); err != nil {
		return domain.Snapshot{}, err
	}
	body := p.doc.Find("body").Clone()
	body.Find("script, style").Remove()
	return domain.Snapshot{
		HTML:  p.html,
		Text:  strings.TrimSpace(body.Text()),
		Title: p.Title,
		URL:   p.URL,
	}, ctx.Err()
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("screenshot", nil); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), ctx.Err()
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// Launcher hands out a prepared Page, or fails with Err. Like the real
// launcher it never returns a browser alongside an error.
type Launcher struct {
	Page     *Page
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Browser, error) {
	l.Launches++
	if l.Err != nil {
		return nil, l.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Page, nil
}
