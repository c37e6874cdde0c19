package reservation

import "sort"

// UpcomingDates returns the n consecutive dates starting at today, in
// ascending order. n <= 0 yields nil.
func UpcomingDates(today Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, today.AddDays(i))
	}
	return out
}

// TargetDates returns the window dates that have no active reservation,
// sorted ascending and without duplicates.
func TargetDates(window []Date, active []Record) []Date {
	reserved := make(map[Date]struct{}, len(active))
	for _, r := range active {
		reserved[r.Date] = struct{}{}
	}
	seen := make(map[Date]struct{}, len(window))
	var out []Date
	for _, d := range window {
		if _, ok := reserved[d]; ok {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
