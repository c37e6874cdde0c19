package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/example/seat-scheduler/internal/clock"
	"github.com/example/seat-scheduler/internal/config"
	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/example/seat-scheduler/internal/infrastructure/httpx"
	"github.com/example/seat-scheduler/internal/infrastructure/istasyon"
	"github.com/example/seat-scheduler/internal/infrastructure/telegram"
	"github.com/example/seat-scheduler/internal/logging"
	"github.com/sirupsen/logrus"
)

type app struct {
	cfg      config.Config
	log      *logrus.Entry
	runID    string
	clock    clock.Clock
	client   *istasyon.Client
	notifier reservation.Notifier
	close    func() error
}

// wireApp loads and validates configuration and builds the API client,
// notifier and logger shared by the account commands.
func wireApp(opts *rootOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Stderr: stderr})
	if err != nil {
		return nil, err
	}
	entry, runID := logging.WithRun(logger)
	if cfg.Source != "" {
		entry.WithField("file", cfg.Source).Debug("config loaded")
	}

	clk := clock.Real()
	x := httpx.New(httpx.Options{Clock: clk, Logger: entry, Timeout: cfg.HTTPTimeout})
	client := istasyon.New(istasyon.Options{
		BaseURL:  cfg.BaseURL,
		Executor: x,
		Retry:    cfg.RetryPolicy(),
		Logger:   entry,
	})

	var notifier reservation.Notifier = reservation.NopNotifier{}
	if cfg.TelegramEnabled() {
		notifier = telegram.New(telegram.Options{
			Token:    cfg.TelegramToken,
			ChatID:   cfg.TelegramID,
			Executor: x,
			Retry:    cfg.RetryPolicy(),
			Logger:   entry,
		})
	} else {
		entry.Warn("TELEGRAM_ID or TELEGRAM_TOKEN not set, notifications disabled")
	}

	return &app{
		cfg:      cfg,
		log:      entry,
		runID:    runID,
		clock:    clk,
		client:   client,
		notifier: notifier,
		close:    closeLog,
	}, nil
}

func (a *app) login(ctx context.Context) error {
	if err := a.client.Login(ctx, a.cfg.Username, a.cfg.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}
