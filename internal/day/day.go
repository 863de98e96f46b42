package day

import (
	"fmt"
	"time"
)

const layout = "2006-01-02"

// Key identifies a calendar date as the number of days since 1970-01-01.
// It carries no time-of-day or timezone, so two keys compare with ==.
type Key int32

// In collapses t to its calendar date as observed in loc.
func In(t time.Time, loc *time.Location) Key {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return fromDate(y, m, d)
}

// Of collapses t to its calendar date in the process calendar (time.Local).
func Of(t time.Time) Key {
	return In(t, time.Local)
}

// Today returns the key for now in loc.
func Today(now func() time.Time, loc *time.Location) Key {
	if now == nil {
		now = time.Now
	}
	return In(now(), loc)
}

// Same reports whether a and b fall on the same calendar date in the process calendar.
func Same(a, b time.Time) bool {
	return Of(a) == Of(b)
}

// Parse reads a "2006-01-02" date.
func Parse(s string) (Key, error) {
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("day: invalid date %q: %w", s, err)
	}
	return fromDate(t.Date()), nil
}

func fromDate(y int, m time.Month, d int) Key {
	// UTC midnight is always a multiple of 86400, so the division is exact.
	return Key(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// Time returns local midnight of k in loc.
func (k Key) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := k.date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Add moves k by n calendar days.
func (k Key) Add(n int) Key {
	return k + Key(n)
}

func (k Key) date() (int, time.Month, int) {
	return time.Unix(int64(k)*86400, 0).UTC().Date()
}

func (k Key) String() string {
	return time.Unix(int64(k)*86400, 0).UTC().Format(layout)
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
