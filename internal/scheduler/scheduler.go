// Package scheduler decides when a run starts and holds the caller until
// that instant.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/seat-scheduler/internal/clock"
)

// Mode selects when a run starts.
type Mode int

const (
	ModeImmediate Mode = iota
	ModeMidnight
	ModeAt
)

func (m Mode) String() string {
	switch m {
	case ModeMidnight:
		return "midnight"
	case ModeAt:
		return "at"
	default:
		return "now"
	}
}

// ParseMode is case-insensitive. An empty string means ModeImmediate.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "now", "immediate":
		return ModeImmediate, nil
	case "midnight":
		return ModeMidnight, nil
	case "at":
		return ModeAt, nil
	}
	return 0, fmt.Errorf("unknown schedule mode %q (want now, midnight or at)", s)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ComputeTarget returns the start instant for mode, in now's location.
// ModeAt rolls to tomorrow when hh:mm today is not strictly after now.
func ComputeTarget(mode Mode, hour, minute int, now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch mode {
	case ModeMidnight:
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case ModeAt:
		t := time.Date(y, m, d, hour, minute, 0, 0, loc)
		if !t.After(now) {
			t = time.Date(y, m, d+1, hour, minute, 0, 0, loc)
		}
		return t
	default:
		return now
	}
}

// Reporter receives the time left before the target.
type Reporter func(remaining time.Duration)

const (
	DefaultPoll        = time.Second
	DefaultReportEvery = 30 * time.Second
)

// Gate blocks until a wall-clock instant. Now is re-read on every poll so
// a suspended process catches up instead of oversleeping.
type Gate struct {
	Clock       clock.Clock
	Report      Reporter
	ReportEvery time.Duration
	Poll        time.Duration
}

// Await returns nil once now >= target, or ctx.Err() if interrupted first.
func (g Gate) Await(ctx context.Context, target time.Time) error {
	clk := g.Clock
	if clk == nil {
		clk = clock.Real()
	}
	poll := g.Poll
	if poll <= 0 || poll > DefaultPoll {
		poll = DefaultPoll
	}
	every := g.ReportEvery
	if every <= 0 {
		every = DefaultReportEvery
	}

	now := clk.Now()
	if !now.Before(target) {
		return nil
	}
	g.report(target.Sub(now))
	lastReport := now

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now = clk.Now()
		left := target.Sub(now)
		if left <= 0 {
			return nil
		}
		if now.Sub(lastReport) >= every {
			g.report(left)
			lastReport = now
		}
		wait := poll
		if left < wait {
			wait = left
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(wait):
		}
	}
}

func (g Gate) report(left time.Duration) {
	if g.Report != nil {
		g.Report(left)
	}
}

// FormatRemaining renders d as H:MM:SS, rounded up to the second.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
