package istasyon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/sirupsen/logrus"
)

// activeStatuses are the registration states that still hold a seat
// (pending, confirmed, waitlisted).
var activeStatuses = []string{"1", "3", "7"}

var _ reservation.Provider = (*Client)(nil)

type registrationAttributes struct {
	Date      string    `json:"date"`
	EntryTime string    `json:"entry_time"`
	ExitTime  string    `json:"exit_time"`
	Seat      seatValue `json:"seat"`
}

type registrationItem struct {
	ID         json.RawMessage         `json:"id"`
	Attributes *registrationAttributes `json:"attributes"`
}

type listResponse struct {
	Data []registrationItem `json:"data"`
}

type createRequest struct {
	Data struct {
		Attributes createAttributes `json:"attributes"`
	} `json:"data"`
}

type createAttributes struct {
	Date      string `json:"date"`
	Seat      int    `json:"seat"`
	StationID string `json:"station_id"`
	EntryTime string `json:"entry_time"`
	ExitTime  string `json:"exit_time"`
}

type createResponse struct {
	Data *registrationItem `json:"data"`
}

// ListActive returns the account's active registrations sorted by date.
// Items without attributes or with an unreadable date are skipped.
func (c *Client) ListActive(ctx context.Context) ([]reservation.Record, error) {
	q := url.Values{}
	q.Set("type", "[Activeregistration] Load Activeregistrations")
	for i, s := range activeStatuses {
		q.Set(fmt.Sprintf("filter[status][eq][%d]", i), s)
	}
	q.Set("sort", "date")
	q.Set("include", "station")

	c.log.Info("loading active reservations")
	var res listResponse
	if err := c.do(ctx, http.MethodGet, pathRegistration, q, nil, &res); err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return c.parseRecords(res.Data), nil
}

// Create books seat on date. A 2xx answer without data counts as failure.
// When the echoed registration cannot be parsed the booking still stands and
// the record is filled from the request.
func (c *Client) Create(ctx context.Context, date reservation.Date, seat int, tpl reservation.Template) (reservation.Record, error) {
	var body createRequest
	body.Data.Attributes = createAttributes{
		Date:      date.String(),
		Seat:      seat,
		StationID: tpl.StationID,
		EntryTime: tpl.EntryTime,
		ExitTime:  tpl.ExitTime,
	}

	log := c.log.WithFields(logrus.Fields{"date": date.String(), "seat": seat})
	log.Info("attempting reservation")

	var res createResponse
	if err := c.do(ctx, http.MethodPost, pathRegistration, nil, body, &res); err != nil {
		return reservation.Record{}, fmt.Errorf("create reservation %s seat %d: %w", date, seat, err)
	}
	if res.Data == nil || res.Data.Attributes == nil {
		return reservation.Record{}, fmt.Errorf("create reservation %s seat %d: %w", date, seat, ErrNoData)
	}

	rec, err := parseRecord(*res.Data)
	if err != nil {
		log.WithError(err).Warn("unreadable registration in create response")
		rec = reservation.Record{
			ID:        rawID(res.Data.ID),
			Date:      date,
			EntryTime: tpl.EntryTime,
			ExitTime:  tpl.ExitTime,
			Seat:      seat,
		}
	}
	if rec.Seat == 0 {
		rec.Seat = seat
	}
	log.WithFields(logrus.Fields{"entry": rec.EntryTime, "exit": rec.ExitTime}).Info("reservation created")
	return rec, nil
}

// Cancel deletes one registration.
func (c *Client) Cancel(ctx context.Context, id string) error {
	c.log.WithField("id", id).Info("cancelling reservation")
	if err := c.do(ctx, http.MethodDelete, pathRegistration+"/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("cancel reservation %s: %w", id, err)
	}
	c.log.WithField("id", id).Info("reservation cancelled")
	return nil
}

// CancelAll cancels every active registration in order. It is not
// transactional: the first failure stops the sweep and is returned along
// with the number already cancelled.
func (c *Client) CancelAll(ctx context.Context) (int, error) {
	records, err := c.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	for i, r := range records {
		if err := c.Cancel(ctx, r.ID); err != nil {
			return i, err
		}
	}
	c.log.WithField("count", len(records)).Info("all reservations cancelled")
	return len(records), nil
}

// Profile is the account profile with break information.
type Profile struct {
	ID         string         `json:"id" yaml:"id"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}

func (c *Client) Profile(ctx context.Context) (Profile, error) {
	q := url.Values{}
	q.Set("include", "remaining_breaks,break_status")

	var res struct {
		Data *struct {
			ID         json.RawMessage `json:"id"`
			Attributes map[string]any  `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, pathProfile, q, nil, &res); err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if res.Data == nil {
		return Profile{}, fmt.Errorf("load profile: %w", ErrNoData)
	}
	return Profile{ID: rawID(res.Data.ID), Attributes: res.Data.Attributes}, nil
}

func (c *Client) parseRecords(items []registrationItem) []reservation.Record {
	out := make([]reservation.Record, 0, len(items))
	for _, it := range items {
		if it.Attributes == nil {
			continue
		}
		r, err := parseRecord(it)
		if err != nil {
			c.log.WithError(err).Warn("skipping unreadable registration")
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseRecord(it registrationItem) (reservation.Record, error) {
	a := it.Attributes
	d, err := reservation.ParseDate(a.Date)
	if err != nil {
		return reservation.Record{}, fmt.Errorf("registration %s: %w", rawID(it.ID), err)
	}
	return reservation.Record{
		ID:        rawID(it.ID),
		Date:      d,
		EntryTime: clockTime(a.EntryTime),
		ExitTime:  clockTime(a.ExitTime),
		Seat:      int(a.Seat),
	}, nil
}

// clockTime extracts HH:MM from "HH:MM", "HH:MM:SS" or a full
// "YYYY-MM-DD HH:MM:SS" / RFC 3339 timestamp.
func clockTime(s string) string {
	if len(s) >= 16 && (s[10] == 'T' || s[10] == ' ') {
		return s[11:16]
	}
	if len(s) >= 5 {
		return s[:5]
	}
	return s
}

// rawID renders a JSON id that may be a string or a number.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// seatValue accepts a seat number encoded as a JSON number or string.
type seatValue int

func (s *seatValue) UnmarshalJSON(b []byte) error {
	str := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if str == "" || str == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("seat %s: %w", string(b), err)
	}
	*s = seatValue(n)
	return nil
}
