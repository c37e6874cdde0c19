package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/seat-scheduler/internal/application/usecases"
	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/example/seat-scheduler/internal/interfaces/render"
	"github.com/example/seat-scheduler/internal/scheduler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		mode    string
		at      string
		shipLog bool
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Wait for the start time, then book a seat on the first open date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := scheduler.ParseMode(mode)
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			var hour, minute int
			if m == scheduler.ModeAt {
				if at == "" {
					return &ExitError{Code: ExitFailure, Err: errors.New("--at HH:MM is required with --mode at")}
				}
				if hour, minute, err = scheduler.ParseClock(at); err != nil {
					return &ExitError{Code: ExitFailure, Err: err}
				}
			}

			a, err := wireApp(root, cmd.ErrOrStderr())
			if err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := a.runOnce(ctx, m, hour, minute, cmd.ErrOrStderr())
			if err == nil {
				if rerr := render.Reservations(cmd.OutOrStdout(), res.Active, render.FormatTable); rerr != nil {
					a.log.WithError(rerr).Warn("printing reservations failed")
				}
			}
			if shipLog {
				a.shipLog(ctx)
			}

			switch {
			case err == nil:
				return nil
			case ctx.Err() != nil || errors.Is(err, context.Canceled):
				return &ExitError{Code: ExitInterrupted, Err: fmt.Errorf("interrupted: %w", err)}
			default:
				return &ExitError{Code: ExitFailure, Err: err}
			}
		},
	}

	c.Flags().StringVar(&mode, "mode", "now", "when to start: now, midnight or at")
	c.Flags().StringVar(&at, "at", "", "start time for --mode at (HH:MM, reference zone)")
	c.Flags().BoolVar(&shipLog, "ship-log", false, "send the log file to Telegram when the run ends")
	return c
}

// runOnce gates, logs in and runs one acquisition. It always writes the
// terminal "run finished" line, panics included.
func (a *app) runOnce(ctx context.Context, mode scheduler.Mode, hour, minute int, stderr io.Writer) (res usecases.Result, err error) {
	started := a.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		fields := logrus.Fields{"status": res.Status, "elapsed": a.clock.Now().Sub(started).Round(time.Millisecond)}
		if res.Booked != nil {
			fields["booked_date"] = res.Booked.Date
			fields["booked_seat"] = res.Booked.Seat
		}
		if err != nil {
			a.log.WithFields(fields).WithError(err).Error("run finished")
			return
		}
		a.log.WithFields(fields).Info("run finished")
	}()

	a.log.WithFields(logrus.Fields{"mode": mode, "version": Version}).Info("run started")

	loc := a.cfg.Location()
	target := scheduler.ComputeTarget(mode, hour, minute, a.clock.Now().In(loc))
	if mode != scheduler.ModeImmediate {
		a.log.WithField("target", target.Format("2006-01-02 15:04")).Info("run scheduled")
		report, tty := a.countdown(stderr)
		err := scheduler.Gate{Clock: a.clock, Report: report}.Await(ctx, target)
		if tty {
			fmt.Fprintln(stderr)
		}
		if err != nil {
			return res, err
		}
		a.log.Info("start time reached")
	}

	if err := a.login(ctx); err != nil {
		return res, err
	}

	return usecases.Acquire{
		Provider:   a.client,
		Notifier:   a.notifier,
		Clock:      a.clock,
		Location:   loc,
		Seats:      a.cfg.Seats,
		Template:   a.cfg.Template(),
		WindowDays: a.cfg.WindowDays,
		Log:        a.log,
	}.Execute(ctx)
}

// countdown redraws one line on an interactive terminal and logs
// otherwise. tty reports which one was chosen.
func (a *app) countdown(w io.Writer) (report scheduler.Reporter, tty bool) {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return func(left time.Duration) {
			fmt.Fprintf(f, "\rTime left: %s ", scheduler.FormatRemaining(left))
		}, true
	}
	return func(left time.Duration) {
		a.log.WithField("remaining", scheduler.FormatRemaining(left)).Info("waiting for start time")
	}, false
}

func (a *app) shipLog(ctx context.Context) {
	if _, ok := a.notifier.(reservation.NopNotifier); ok {
		a.log.Warn("--ship-log needs Telegram, skipping")
		return
	}
	// the run context may already be cancelled by an interrupt
	ctx = context.WithoutCancel(ctx)
	if err := a.notifier.SendDocument(ctx, a.cfg.LogFile); err != nil {
		a.log.WithError(err).Warn("shipping log file failed")
	}
}
