package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/seat-scheduler/internal/clock"
	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/sirupsen/logrus"
)

// ErrNoSeatAvailable means every seat was tried and none could be booked.
var ErrNoSeatAvailable = errors.New("no seat available")

// Acquire books one seat on the first open date in the lookahead window
// and reports the resulting reservation table.
type Acquire struct {
	Provider reservation.Provider
	Notifier reservation.Notifier
	Clock    clock.Clock
	// Location is the zone "today" is taken in.
	Location   *time.Location
	Seats      []int
	Template   reservation.Template
	WindowDays int
	Log        logrus.FieldLogger
}

type Result struct {
	// Status is true when a reservation was created during the run.
	Status  bool
	Booked  *reservation.Record
	Targets []reservation.Date
	// Active is the table reported at the end, re-queried after a booking.
	Active  []reservation.Record
	Summary string
}

// Execute runs one acquisition pass. Only a failure of the initial listing
// or an interrupted context is returned as an error; seat and notification
// failures are logged.
func (u Acquire) Execute(ctx context.Context) (Result, error) {
	if u.Provider == nil {
		return Result{}, fmt.Errorf("provider is nil")
	}
	log := u.logger()

	active, err := u.Provider.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list active reservations: %w", err)
	}
	log.WithField("count", len(active)).Info("active reservations loaded")

	today := reservation.DateOf(u.now())
	res := Result{Targets: reservation.TargetDates(reservation.UpcomingDates(today, u.WindowDays), active)}

	if len(res.Targets) == 0 {
		log.Info("every date in the window is already reserved, nothing to do")
	} else {
		log.WithField("dates", res.Targets).Info("attempting reservations")
		rec, err := u.CreateForDates(ctx, res.Targets)
		switch {
		case err == nil:
			res.Status = true
			res.Booked = &rec
		case errors.Is(err, ErrNoSeatAvailable):
		default:
			return res, err
		}
	}

	res.Active = active
	if res.Status {
		if again, err := u.Provider.ListActive(ctx); err != nil {
			log.WithError(err).Warn("re-listing reservations failed, reporting the earlier snapshot")
		} else {
			res.Active = again
		}
	}

	res.Summary = Summary(res.Active, u.now())
	if err := u.notifier().Notify(ctx, res.Summary); err != nil {
		log.WithError(err).Warn("summary notification failed")
	}
	return res, nil
}

// CreateForDates walks dates in order and stops after the first booking on
// any of them.
func (u Acquire) CreateForDates(ctx context.Context, dates []reservation.Date) (reservation.Record, error) {
	for _, d := range dates {
		rec, err := u.CreateForSeats(ctx, d)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNoSeatAvailable) {
			return reservation.Record{}, err
		}
		u.logger().WithField("date", d).Warn("no reservation could be made for date")
	}
	return reservation.Record{}, ErrNoSeatAvailable
}

// CreateForSeats tries each configured seat for date in list order until
// one is booked. Any create error counts as the seat being unavailable.
func (u Acquire) CreateForSeats(ctx context.Context, date reservation.Date) (reservation.Record, error) {
	log := u.logger().WithField("date", date)
	for _, seat := range u.Seats {
		if err := ctx.Err(); err != nil {
			return reservation.Record{}, err
		}
		log.WithField("seat", seat).Info("trying seat")
		rec, err := u.Provider.Create(ctx, date, seat, u.Template)
		if err != nil {
			log.WithField("seat", seat).WithError(err).Warn("seat not booked")
			continue
		}
		if rec.Date == (reservation.Date{}) {
			rec.Date = date
		}
		if rec.Seat == 0 {
			rec.Seat = seat
		}
		log.WithFields(logrus.Fields{"seat": seat, "id": rec.ID}).Info("reservation booked")
		msg := fmt.Sprintf("Reservation booked: %s %s-%s, seat %d", date, u.Template.EntryTime, u.Template.ExitTime, seat)
		if err := u.notifier().Notify(ctx, msg); err != nil {
			log.WithError(err).Warn("booking notification failed")
		}
		return rec, nil
	}
	log.Warn("no seat available for date")
	return reservation.Record{}, ErrNoSeatAvailable
}

func (u Acquire) now() time.Time {
	clk := u.Clock
	if clk == nil {
		clk = clock.Real()
	}
	loc := u.Location
	if loc == nil {
		loc = time.Local
	}
	return clk.Now().In(loc)
}

func (u Acquire) notifier() reservation.Notifier {
	if u.Notifier == nil {
		return reservation.NopNotifier{}
	}
	return u.Notifier
}

func (u Acquire) logger() logrus.FieldLogger {
	if u.Log == nil {
		return logrus.StandardLogger()
	}
	return u.Log
}
