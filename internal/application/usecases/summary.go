package usecases

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/seat-scheduler/internal/domain/reservation"
)

const summaryStampLayout = "2006-01-02 15:04:05"

// Summary renders records as the notification text: a header, one line
// per reservation and a trailing timestamp line.
func Summary(records []reservation.Record, now time.Time) string {
	var b strings.Builder
	b.WriteString("Active reservations:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%s ⏳%s-%s →%d🪑\n", r.Date, r.EntryTime, r.ExitTime, r.Seat)
	}
	b.WriteString(now.Format(summaryStampLayout))
	return b.String()
}
