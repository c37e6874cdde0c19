package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/example/seat-scheduler/internal/clock"
	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/example/seat-scheduler/internal/infrastructure/httpx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utc3 = time.FixedZone("UTC+3", 3*3600)

type attempt struct {
	Date reservation.Date
	Seat int
}

type fakeProvider struct {
	// lists holds successive ListActive answers; the last one repeats.
	lists    [][]reservation.Record
	listErrs []error
	accept   map[attempt]bool

	listCalls int
	attempts  []attempt
}

func (p *fakeProvider) ListActive(context.Context) ([]reservation.Record, error) {
	i := p.listCalls
	p.listCalls++
	if i < len(p.listErrs) && p.listErrs[i] != nil {
		return nil, p.listErrs[i]
	}
	if len(p.lists) == 0 {
		return nil, nil
	}
	if i >= len(p.lists) {
		i = len(p.lists) - 1
	}
	return p.lists[i], nil
}

func (p *fakeProvider) Create(_ context.Context, date reservation.Date, seat int, tpl reservation.Template) (reservation.Record, error) {
	a := attempt{Date: date, Seat: seat}
	p.attempts = append(p.attempts, a)
	if !p.accept[a] {
		return reservation.Record{}, &httpx.Error{Kind: httpx.KindHTTP, Method: http.MethodPost, StatusCode: http.StatusUnprocessableEntity, Reason: "Unprocessable Entity"}
	}
	return reservation.Record{
		ID:        fmt.Sprintf("new-%s-%d", date, seat),
		Date:      date,
		EntryTime: tpl.EntryTime,
		ExitTime:  tpl.ExitTime,
		Seat:      seat,
	}, nil
}

func (p *fakeProvider) Cancel(context.Context, string) error { return nil }

type fakeNotifier struct {
	messages []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return n.err
}

func (n *fakeNotifier) SendDocument(context.Context, string) error { return n.err }

func date(t *testing.T, s string) reservation.Date {
	t.Helper()
	d, err := reservation.ParseDate(s)
	require.NoError(t, err)
	return d
}

func newAcquire(p *fakeProvider, n *fakeNotifier, start time.Time, seats []int, window int) Acquire {
	logger, _ := test.NewNullLogger()
	return Acquire{
		Provider:   p,
		Notifier:   n,
		Clock:      clock.Fake(start),
		Location:   utc3,
		Seats:      seats,
		Template:   reservation.Template{StationID: "61a23dd5572db", EntryTime: "11:00", ExitTime: "23:00"},
		WindowDays: window,
		Log:        logger,
	}
}

func TestCreateForSeatsStopsAtFirstSuccess(t *testing.T) {
	d := date(t, "2024-08-09")
	p := &fakeProvider{accept: map[attempt]bool{{d, 32}: true, {d, 37}: true}}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Now(), []int{34, 32, 37, 38}, 7)

	rec, err := u.CreateForSeats(context.Background(), d)

	require.NoError(t, err)
	assert.Equal(t, 32, rec.Seat)
	assert.Equal(t, []attempt{{d, 34}, {d, 32}}, p.attempts)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "2024-08-09")
	assert.Contains(t, n.messages[0], "seat 32")
}

func TestCreateForSeatsAllFailTriesEachSeatOnceInOrder(t *testing.T) {
	d := date(t, "2024-08-09")
	p := &fakeProvider{}
	n := &fakeNotifier{}
	seats := []int{34, 32, 37, 38, 32, 1}
	u := newAcquire(p, n, time.Now(), seats, 7)

	_, err := u.CreateForSeats(context.Background(), d)

	assert.ErrorIs(t, err, ErrNoSeatAvailable)
	require.Len(t, p.attempts, len(seats))
	for i, s := range seats {
		assert.Equal(t, attempt{d, s}, p.attempts[i])
	}
	assert.Empty(t, n.messages)
}

func TestExecuteScenarioEarlyExit(t *testing.T) {
	d9, d10, d11 := date(t, "2024-08-09"), date(t, "2024-08-10"), date(t, "2024-08-11")
	existing := reservation.Record{ID: "a", Date: d10, EntryTime: "11:00", ExitTime: "23:00", Seat: 32}
	booked := reservation.Record{ID: "b", Date: d9, EntryTime: "11:00", ExitTime: "23:00", Seat: 34}
	p := &fakeProvider{
		lists:  [][]reservation.Record{{existing}, {booked, existing}},
		accept: map[attempt]bool{{d9, 34}: true, {d11, 34}: true},
	}
	n := &fakeNotifier{}
	start := time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC)
	u := newAcquire(p, n, start, []int{34, 32}, 3)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, []reservation.Date{d9, d11}, res.Targets)
	assert.Equal(t, []attempt{{d9, 34}}, p.attempts)
	require.NotNil(t, res.Booked)
	assert.Equal(t, 34, res.Booked.Seat)
	assert.Equal(t, 2, p.listCalls)

	require.Len(t, n.messages, 2)
	lines := strings.Split(n.messages[1], "\n")
	assert.Equal(t, []string{
		"Active reservations:",
		"2024-08-09 ⏳11:00-23:00 →34🪑",
		"2024-08-10 ⏳11:00-23:00 →32🪑",
		"2024-08-09 10:00:00",
	}, lines)
	assert.Equal(t, res.Summary, n.messages[1])
}

func TestExecuteRequeryFailureReportsSnapshot(t *testing.T) {
	d9, d10 := date(t, "2024-08-09"), date(t, "2024-08-10")
	existing := reservation.Record{ID: "a", Date: d10, EntryTime: "11:00", ExitTime: "23:00", Seat: 32}
	p := &fakeProvider{
		lists:    [][]reservation.Record{{existing}},
		listErrs: []error{nil, errors.New("connection reset")},
		accept:   map[attempt]bool{{d9, 34}: true},
	}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34}, 3)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, []reservation.Record{existing}, res.Active)
	assert.Contains(t, res.Summary, "2024-08-10 ⏳11:00-23:00 →32🪑")
}

func TestExecuteMovesToNextDateWhenNoSeat(t *testing.T) {
	d9, d10 := date(t, "2024-08-09"), date(t, "2024-08-10")
	p := &fakeProvider{accept: map[attempt]bool{{d10, 32}: true}}
	u := newAcquire(p, &fakeNotifier{}, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34, 32}, 2)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Equal(t, []attempt{{d9, 34}, {d9, 32}, {d10, 34}, {d10, 32}}, p.attempts)
}

func TestExecuteNothingToDo(t *testing.T) {
	today := date(t, "2024-08-09")
	p := &fakeProvider{lists: [][]reservation.Record{{{ID: "a", Date: today, EntryTime: "11:00", ExitTime: "23:00", Seat: 1}}}}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34}, 1)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Status)
	assert.Empty(t, res.Targets)
	assert.Empty(t, p.attempts)
	assert.Equal(t, 1, p.listCalls)
	require.Len(t, n.messages, 1)
	assert.True(t, strings.HasPrefix(n.messages[0], "Active reservations:\n2024-08-09 ⏳11:00-23:00 →1🪑\n"))
}

func TestExecuteNoBookingKeepsSnapshot(t *testing.T) {
	p := &fakeProvider{}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34}, 2)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.False(t, res.Status)
	assert.Nil(t, res.Booked)
	assert.Len(t, p.attempts, 2)
	assert.Equal(t, 1, p.listCalls)
	require.Len(t, n.messages, 1)
}

func TestExecuteTodayIsTakenInReferenceZone(t *testing.T) {
	p := &fakeProvider{}
	// 21:30 UTC is already the next day at UTC+3.
	u := newAcquire(p, &fakeNotifier{}, time.Date(2024, 8, 8, 21, 30, 0, 0, time.UTC), []int{34}, 1)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []reservation.Date{date(t, "2024-08-09")}, res.Targets)
}

func TestExecuteListFailureAborts(t *testing.T) {
	p := &fakeProvider{listErrs: []error{&httpx.Error{Kind: httpx.KindHTTP, StatusCode: 401, Reason: "Unauthorized"}}}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Now(), []int{34}, 7)

	_, err := u.Execute(context.Background())

	require.Error(t, err)
	assert.Equal(t, 401, httpx.StatusCode(err))
	assert.Empty(t, p.attempts)
	assert.Empty(t, n.messages)
}

func TestExecuteNotificationFailureIsNotFatal(t *testing.T) {
	d9 := date(t, "2024-08-09")
	p := &fakeProvider{accept: map[attempt]bool{{d9, 34}: true}}
	n := &fakeNotifier{err: &httpx.Error{Kind: httpx.KindDelivery, Reason: "not acknowledged"}}
	u := newAcquire(p, n, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34}, 1)

	res, err := u.Execute(context.Background())

	require.NoError(t, err)
	assert.True(t, res.Status)
	assert.Len(t, n.messages, 2)
}

func TestExecuteInterrupted(t *testing.T) {
	p := &fakeProvider{}
	n := &fakeNotifier{}
	u := newAcquire(p, n, time.Date(2024, 8, 9, 7, 0, 0, 0, time.UTC), []int{34}, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.attempts)
	assert.Empty(t, n.messages)
}

func TestSummaryEmpty(t *testing.T) {
	now := time.Date(2024, 8, 9, 0, 0, 1, 0, utc3)
	assert.Equal(t, "Active reservations:\n2024-08-09 00:00:01", Summary(nil, now))
}
