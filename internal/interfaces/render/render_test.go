package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func records(t *testing.T) []reservation.Record {
	t.Helper()
	d, err := reservation.ParseDate("2024-08-10")
	require.NoError(t, err)
	return []reservation.Record{
		{ID: "42", Date: d, EntryTime: "11:00", ExitTime: "23:00", Seat: 32},
		{ID: "long-identifier-7", Date: d.AddDays(1), EntryTime: "09:00", ExitTime: "18:30", Seat: 1},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestReservationsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Reservations(&buf, records(t), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Active reservations (2)")
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "SEAT")

	var rows []string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "2024-08-") {
			rows = append(rows, strings.TrimRight(line, " "))
		}
	}
	require.Len(t, rows, 2)
	assert.Equal(t, strings.Index(rows[0], "2024-08-10"), strings.Index(rows[1], "2024-08-11"))
	assert.True(t, strings.HasSuffix(rows[0], "32"))
}

func TestReservationsEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Reservations(&buf, nil, FormatTable))
	assert.Contains(t, buf.String(), "No active reservations.")
}

func TestReservationsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Reservations(&buf, records(t), FormatJSON))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2024-08-10", got[0]["date"])
	assert.Equal(t, float64(32), got[0]["seat"])

	buf.Reset()
	require.NoError(t, Reservations(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())
}

func TestReservationsYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Reservations(&buf, records(t), FormatYAML))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2024-08-10", got[0]["date"])
	assert.Equal(t, "11:00", got[0]["entry_time"])
	assert.Equal(t, 32, got[0]["seat"])
}

func TestProfileTableSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	attrs := map[string]any{"remaining_breaks": float64(2), "break_status": nil, "name": "Ada"}
	require.NoError(t, Profile(&buf, "u1", attrs, FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Profile u1")
	assert.Less(t, strings.Index(out, "break_status"), strings.Index(out, "name"))
	assert.Less(t, strings.Index(out, "name"), strings.Index(out, "remaining_breaks"))
	assert.Contains(t, out, "Ada")
}

func TestProfileJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Profile(&buf, "u1", map[string]any{"name": "Ada"}, FormatJSON))
	assert.JSONEq(t, `{"id":"u1","attributes":{"name":"Ada"}}`, buf.String())
}
