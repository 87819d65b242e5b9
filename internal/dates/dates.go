package dates

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Key is a calendar day in YYYY-MM-DD form. It carries no time zone.
type Key string

const keyLayout = "2006-01-02"

// ToKey returns the calendar day of t in t's own location.
func ToKey(t time.Time) Key {
	return Key(t.Format(keyLayout))
}

// Parse validates a strict YYYY-MM-DD string.
func Parse(s string) (Key, error) {
	t, err := time.Parse(keyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", s, err)
	}
	return ToKey(t), nil
}

// MustParse is Parse for literals; it panics on malformed input.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// NormalizeKey accepts either a DateKey or an RFC 3339 timestamp and returns
// the DateKey. Timestamps are reduced to their UTC calendar day.
func NormalizeKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(keyLayout) {
		return Parse(s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return ToKey(t.UTC()), nil
}

// Valid reports whether k is a well-formed DateKey.
func (k Key) Valid() bool {
	_, err := time.Parse(keyLayout, string(k))
	return err == nil
}

// Time returns midnight UTC of k. The zero time is returned for malformed keys.
func (k Key) Time() time.Time {
	t, err := time.Parse(keyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts k by n calendar days. Malformed keys are returned unchanged.
func (k Key) AddDays(n int) Key {
	t, err := time.Parse(keyLayout, string(k))
	if err != nil {
		return k
	}
	return ToKey(t.AddDate(0, 0, n))
}

func (k Key) Weekday() time.Weekday {
	return k.Time().Weekday()
}

func (k Key) String() string {
	return string(k)
}

// Before reports whether k is strictly earlier than other.
func (k Key) Before(other Key) bool {
	return k < other
}

// StartOfWeek returns the Monday on or before k.
func StartOfWeek(k Key) Key {
	offset := (int(k.Weekday()) + 6) % 7
	return k.AddDays(-offset)
}

// WeekStartOf returns the Monday of the ISO week containing t's calendar day.
func WeekStartOf(t time.Time) Key {
	return StartOfWeek(ToKey(t))
}

// WeekDays returns the seven consecutive days beginning at start.
func WeekDays(start Key) []Key {
	days := make([]Key, 7)
	for i := range days {
		days[i] = start.AddDays(i)
	}
	return days
}

// CalculateDuration returns the booking length in days, never less than one.
func CalculateDuration(start, end Key) int {
	diff := end.Time().Sub(start.Time()).Hours() / 24
	days := int(math.Round(diff))
	if days < 1 {
		return 1
	}
	return days
}

// FormatDate renders k as "Jan 2".
func FormatDate(k Key) string {
	return k.Time().Format("Jan 2")
}

// FormatWeekday renders k as "Mon".
func FormatWeekday(k Key) string {
	return k.Time().Format("Mon")
}

// FormatLong renders k as "Mon, Jan 2 2006".
func FormatLong(k Key) string {
	return k.Time().Format("Mon, Jan 2 2006")
}

// FormatRange renders a week as "Jan 2 - Jan 8".
func FormatRange(days []Key) string {
	if len(days) == 0 {
		return ""
	}
	return FormatDate(days[0]) + " - " + FormatDate(days[len(days)-1])
}
