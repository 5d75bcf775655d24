package calendar

import "time"

// DateLayout is the wire format for trading dates.
const DateLayout = "2006-01-02"

// IsTradingDay reports whether t falls on a weekday. Holidays are not excluded;
// the data provider simply has no bar for them.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Day truncates t to midnight UTC of its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string as a UTC day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Format renders a day as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// TradingDays lists every weekday between start and end, both inclusive.
func TradingDays(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}
