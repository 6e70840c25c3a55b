package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/artifacts"
	"github.com/user/ferry-watch/internal/browser"
	"github.com/user/ferry-watch/internal/checker"
	"github.com/user/ferry-watch/internal/classifier"
	"github.com/user/ferry-watch/internal/config"
	"github.com/user/ferry-watch/internal/formfill"
	"github.com/user/ferry-watch/internal/monitoring"
	"github.com/user/ferry-watch/internal/notifier"
	"github.com/user/ferry-watch/internal/proxy"
	"github.com/user/ferry-watch/internal/storage"
	"github.com/user/ferry-watch/pkg/logger"
)

// app is the wiring shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	launcher  *browser.ChromeLauncher
	artifacts *artifacts.Store
	recorders []storage.Recorder
	closeLog  func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, closeLog, err := logger.New(cfg.LogDir, cfg.LogLevel, time.Now())
	if err != nil {
		return nil, err
	}

	identities := proxy.NewManager(config.SplitList(cfg.ProxyURLs), config.SplitList(cfg.UserAgents))
	a := &app{
		cfg:     cfg,
		logger:  log,
		metrics: monitoring.NewMetrics(),
		launcher: browser.NewChromeLauncher(browser.Options{
			Headless:          cfg.Headless,
			ExecPath:          cfg.ChromePath,
			AcceptLanguage:    cfg.AcceptLanguage,
			NavigationTimeout: config.Seconds(cfg.NavigationTimeout),
			ActionTimeout:     config.Seconds(cfg.ActionTimeout),
		}, identities, log),
		artifacts: artifacts.NewStore(cfg.ArtifactsDir, time.Now, log),
		closeLog:  closeLog,
	}
	a.recorders = a.openRecorders(ctx)
	return a, nil
}

// openRecorders connects the configured history sinks. A sink that cannot be
// reached is left out; history is optional and must not block a check.
func (a *app) openRecorders(ctx context.Context) []storage.Recorder {
	var recorders []storage.Recorder
	if a.cfg.PostgresURL != "" {
		pg, err := storage.NewPostgresStore(ctx, a.cfg.PostgresURL)
		if err != nil {
			a.logger.Warn("postgres history disabled", zap.Error(err))
		} else {
			recorders = append(recorders, pg)
		}
	}
	if a.cfg.RedisAddr != "" {
		ttl := time.Duration(a.cfg.RedisTTLHours) * time.Hour
		recorders = append(recorders, storage.NewRedisStore(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, ttl))
	}
	return recorders
}

func (a *app) newChecker() *checker.Checker {
	cfg := a.cfg
	criteria := cfg.Criteria()
	filler := formfill.NewFiller(formfill.Config{
		URL:               cfg.BookingURL,
		NavigationTimeout: config.Seconds(cfg.NavigationTimeout),
		FormTimeout:       config.Seconds(cfg.FormTimeout),
		ProbeTimeout:      config.Seconds(cfg.ProbeTimeout),
		ResultsTimeout:    config.Seconds(cfg.ResultsTimeout),
		InitialSettle:     config.Millis(cfg.InitialSettleMS),
		FieldSettle:       config.Millis(cfg.FieldSettleMS),
		DateSettle:        config.Millis(cfg.DateSettleMS),
		ResultsSettle:     config.Millis(cfg.ResultsSettleMS),
		MaxAttempts:       cfg.MaxAttempts,
		RetryCooldown:     config.Seconds(cfg.RetryCooldown),
	}, criteria, a.artifacts, a.metrics, a.logger)

	policy := classifier.Policy{
		MinStructural:       cfg.MinStructural,
		MinLexical:          cfg.MinLexical,
		Corroborate:         cfg.Corroborate,
		NegativeKeywordVeto: cfg.NegativeKeywordVeto,
	}

	return checker.New(checker.Options{
		Criteria:    criteria,
		Operator:    cfg.Operator,
		BookingLink: cfg.BookingLink,
		Launcher:    a.launcher,
		Filler:      filler,
		Classifier:  classifier.New(policy, cfg.Exhaustive, a.logger),
		Notifier:    notifier.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, config.Seconds(cfg.NotifyTimeout), a.logger),
		Recorders:   a.recorders,
		Artifacts:   a.artifacts,
		Metrics:     a.metrics,
		Logger:      a.logger,
	})
}

func (a *app) close() {
	if err := storage.CloseAll(a.recorders); err != nil {
		a.logger.Warn("closing history sinks", zap.Error(err))
	}
	if a.cfg.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			a.logger.Warn("metrics textfile not written", zap.Error(err))
		}
	}
	a.closeLog()
}
