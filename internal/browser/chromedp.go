package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/proxy"
)

// Options controls how Chrome is started and how long single actions may take.
type Options struct {
	Headless          bool
	ExecPath          string
	AcceptLanguage    string
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	WindowWidth       int
	WindowHeight      int
}

// ChromeLauncher starts a fresh Chrome process per check.
type ChromeLauncher struct {
	opts       Options
	identities *proxy.Manager
	logger     *zap.Logger
}

func NewChromeLauncher(opts Options, identities *proxy.Manager, logger *zap.Logger) *ChromeLauncher {
	if opts.WindowWidth == 0 || opts.WindowHeight == 0 {
		opts.WindowWidth, opts.WindowHeight = 1366, 900
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 45 * time.Second
	}
	if identities == nil {
		identities = proxy.NewManager(nil, nil)
	}
	return &ChromeLauncher{opts: opts, identities: identities, logger: logger}
}

// Launch starts Chrome and opens a single tab. The returned Browser must be
// closed by the caller.
func (l *ChromeLauncher) Launch(ctx context.Context) (Browser, error) {
	id := l.identities.Next()
	ua, proxyURL := id.UserAgent, id.Proxy
	l.logger.Debug("launching browser", zap.String("proxy", proxyURL), zap.String("user_agent", ua))
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if proxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxyURL))
	}

	// The process lifetime is bound to Close, not to the caller's context.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	sugar := l.logger.Sugar()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	s := &Session{
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        l.opts,
		logger:      l.logger,
	}

	// The first Run starts the process and must not carry a derived deadline,
	// so ctx only reaches it through cancelTab while startup is in flight.
	stop := context.AfterFunc(ctx, cancelTab)
	err := chromedp.Run(tabCtx)
	if !stop() {
		_ = s.Close()
		return nil, fmt.Errorf("start chrome: %w", context.Cause(ctx))
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	headers := network.Headers{}
	if l.opts.AcceptLanguage != "" {
		headers["Accept-Language"] = l.opts.AcceptLanguage
	}
	if err := s.run(ctx, l.opts.ActionTimeout, "configure network",
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
	); err != nil {
		_ = s.Close()
		return nil, err
	}

	l.logger.Info("browser launched",
		zap.Bool("headless", l.opts.Headless),
		zap.Bool("proxied", proxyURL != ""),
		zap.String("user_agent", ua),
	)
	return s, nil
}

// Session is one Chrome tab driven through chromedp.
type Session struct {
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        Options
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// run executes actions against the tab with a per-operation deadline that is
// also cancelled when the caller's ctx ends.
func (s *Session) run(ctx context.Context, timeout time.Duration, op string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, op, timeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Session) eval(ctx context.Context, op string, sel domain.Selector, body string) (evalResult, error) {
	var res evalResult
	if err := s.run(ctx, s.opts.ActionTimeout, op, chromedp.Evaluate(selectorScript(sel, body), &res)); err != nil {
		return res, err
	}
	if err := res.err(); err != nil {
		return res, fmt.Errorf("%s %s: %w", op, sel, err)
	}
	return res, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.opts.NavigationTimeout, "navigate", chromedp.Navigate(url))
	if err == nil || errors.Is(err, ErrTimeout) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrNavigation, url, err)
}

func (s *Session) Count(ctx context.Context, sel domain.Selector) (int, error) {
	res, err := s.eval(ctx, "count", sel, countBody)
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (s *Session) Click(ctx context.Context, sel domain.Selector) error {
	_, err := s.eval(ctx, "click", sel, clickBody)
	return err
}

func (s *Session) SelectOption(ctx context.Context, sel domain.Selector, label string) error {
	_, err := s.eval(ctx, "select", sel, fmt.Sprintf(selectBody, jsString(label)))
	return err
}

func (s *Session) Fill(ctx context.Context, sel domain.Selector, value string) error {
	_, err := s.eval(ctx, "fill", sel, fmt.Sprintf(fillBody, jsString(value)))
	return err
}

func (s *Session) Value(ctx context.Context, sel domain.Selector) (string, error) {
	res, err := s.eval(ctx, "value", sel, valueBody)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

func (s *Session) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.run(ctx, s.opts.ActionTimeout, "snapshot",
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
		chromedp.Evaluate(visibleTextJS, &snap.Text),
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
	)
	return snap, err
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.opts.ActionTimeout, "screenshot", chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close shuts the tab and the Chrome process. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.tabCtx)
		s.cancelTab()
		s.cancelAlloc()
		if s.closeErr != nil && !errors.Is(s.closeErr, context.Canceled) {
			s.logger.Warn("browser close failed", zap.Error(s.closeErr))
		} else {
			s.closeErr = nil
			s.logger.Debug("browser closed")
		}
	})
	return s.closeErr
}
