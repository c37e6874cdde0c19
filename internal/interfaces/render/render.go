// Package render writes reservations and profile data for the terminal
// as a table, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/example/seat-scheduler/internal/domain/reservation"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
}

// Reservations writes records in format f.
func Reservations(w io.Writer, records []reservation.Record, f Format) error {
	switch f {
	case FormatJSON:
		if records == nil {
			records = []reservation.Record{}
		}
		return writeJSON(w, records)
	case FormatYAML:
		if records == nil {
			records = []reservation.Record{}
		}
		return writeYAML(w, records)
	}

	s := newStyles()
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, s.empty.Render("No active reservations."))
		return err
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.ID, r.Date.String(), r.EntryTime, r.ExitTime, strconv.Itoa(r.Seat)})
	}
	out := lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render(fmt.Sprintf("Active reservations (%d)", len(records))),
		table(s, []string{"ID", "DATE", "ENTRY", "EXIT", "SEAT"}, rows),
	)
	_, err := fmt.Fprintln(w, out)
	return err
}

// Profile writes the account profile. Table output lists attributes
// sorted by key.
func Profile(w io.Writer, id string, attrs map[string]any, f Format) error {
	doc := struct {
		ID         string         `json:"id" yaml:"id"`
		Attributes map[string]any `json:"attributes" yaml:"attributes"`
	}{ID: id, Attributes: attrs}
	switch f {
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatYAML:
		return writeYAML(w, doc)
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, scalar(attrs[k])})
	}

	s := newStyles()
	out := lipgloss.JoinVertical(lipgloss.Left,
		s.title.Render("Profile "+id),
		table(s, []string{"FIELD", "VALUE"}, rows),
	)
	_, err := fmt.Fprintln(w, out)
	return err
}

func table(s styles, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	lines := []string{s.header.Render(pad(header, widths))}
	total := 0
	for _, n := range widths {
		total += n + 2
	}
	lines = append(lines, s.rule.Render(strings.Repeat("-", total-2)))
	for _, row := range rows {
		lines = append(lines, s.row.Render(pad(row, widths)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func pad(cells []string, widths []int) string {
	var b strings.Builder
	for i, c := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(c)
		if i < len(cells)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		}
	}
	return b.String()
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
