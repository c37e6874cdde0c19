package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/example/seat-scheduler/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utc3 = time.FixedZone("UTC+3", 3*3600)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":          ModeImmediate,
		"now":       ModeImmediate,
		"immediate": ModeImmediate,
		"Midnight":  ModeMidnight,
		"at":        ModeAt,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("later")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)

	_, _, err = ParseClock("24:00")
	assert.Error(t, err)
}

func TestComputeTarget(t *testing.T) {
	now := time.Date(2024, 8, 8, 20, 40, 57, 0, utc3)

	assert.Equal(t, now, ComputeTarget(ModeImmediate, 0, 0, now))
	assert.Equal(t, time.Date(2024, 8, 9, 0, 0, 0, 0, utc3), ComputeTarget(ModeMidnight, 0, 0, now))
	assert.Equal(t, time.Date(2024, 8, 8, 21, 0, 0, 0, utc3), ComputeTarget(ModeAt, 21, 0, now))
	assert.Equal(t, time.Date(2024, 8, 9, 20, 0, 0, 0, utc3), ComputeTarget(ModeAt, 20, 0, now))
}

func TestComputeTargetAtCurrentMinuteRolls(t *testing.T) {
	now := time.Date(2024, 8, 8, 9, 30, 0, 0, utc3)
	assert.Equal(t, time.Date(2024, 8, 9, 9, 30, 0, 0, utc3), ComputeTarget(ModeAt, 9, 30, now))
}

func TestComputeTargetMidnightAcrossMonth(t *testing.T) {
	now := time.Date(2024, 8, 31, 23, 59, 59, 0, utc3)
	assert.Equal(t, time.Date(2024, 9, 1, 0, 0, 0, 0, utc3), ComputeTarget(ModeMidnight, 0, 0, now))
}

func TestAwaitPastTargetReturnsAtOnce(t *testing.T) {
	start := time.Date(2024, 8, 8, 12, 0, 0, 0, utc3)
	clk := clock.Fake(start)
	var reports []time.Duration

	err := Gate{Clock: clk, Report: func(d time.Duration) { reports = append(reports, d) }}.
		Await(context.Background(), start.Add(-time.Minute))

	require.NoError(t, err)
	assert.Empty(t, clk.Waits())
	assert.Empty(t, reports)
}

func TestAwaitPollsAndReportsAtBoundedRate(t *testing.T) {
	start := time.Date(2024, 8, 8, 23, 58, 25, 0, utc3)
	clk := clock.Fake(start)
	target := start.Add(95 * time.Second)
	var reports []time.Duration

	err := Gate{Clock: clk, Report: func(d time.Duration) { reports = append(reports, d) }}.
		Await(context.Background(), target)

	require.NoError(t, err)
	assert.False(t, clk.Now().Before(target))
	assert.Equal(t, []time.Duration{95 * time.Second, 65 * time.Second, 35 * time.Second, 5 * time.Second}, reports)

	waits := clk.Waits()
	assert.Len(t, waits, 95)
	for _, w := range waits {
		assert.LessOrEqual(t, w, time.Second)
	}
}

func TestAwaitShortensFinalPoll(t *testing.T) {
	start := time.Date(2024, 8, 8, 12, 0, 0, 0, utc3)
	clk := clock.Fake(start)

	err := Gate{Clock: clk}.Await(context.Background(), start.Add(2500*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 500 * time.Millisecond}, clk.Waits())
}

func TestAwaitCatchesUpAfterSuspend(t *testing.T) {
	start := time.Date(2024, 8, 8, 12, 0, 0, 0, utc3)
	clk := clock.Fake(start)
	clk.Advance(time.Hour)

	err := Gate{Clock: clk}.Await(context.Background(), start.Add(10*time.Minute))

	require.NoError(t, err)
	assert.Empty(t, clk.Waits())
}

func TestAwaitInterrupted(t *testing.T) {
	start := time.Date(2024, 8, 8, 12, 0, 0, 0, utc3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Gate{Clock: clock.Fake(start)}.Await(ctx, start.Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0:00:00", FormatRemaining(-time.Second))
	assert.Equal(t, "0:01:35", FormatRemaining(95*time.Second))
	assert.Equal(t, "3:19:03", FormatRemaining(3*time.Hour+19*time.Minute+2500*time.Millisecond))
}
