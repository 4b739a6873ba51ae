package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Period string

const (
	PeriodAM Period = "AM"
	PeriodPM Period = "PM"
)

// WallClock is a 12-hour wall-clock reading such as "09:05 PM".
type WallClock struct {
	Hour   int // 1..12
	Minute int // 0..59
	Period Period
}

// WallClockAt captures the reading of t in t's own location.
func WallClockAt(t time.Time) WallClock {
	h := t.Hour()
	period := PeriodAM
	if h >= 12 {
		period = PeriodPM
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return WallClock{Hour: h, Minute: t.Minute(), Period: period}
}

// ParseWallClock accepts "hh:mm AM" / "h:mm pm". The period is case
// insensitive; no locale data is consulted.
func ParseWallClock(s string) (WallClock, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return WallClock{}, fmt.Errorf("invalid wall clock %q", s)
	}

	hm := strings.SplitN(fields[0], ":", 2)
	if len(hm) != 2 || len(hm[1]) != 2 {
		return WallClock{}, fmt.Errorf("invalid wall clock %q", s)
	}
	hour, err := strconv.Atoi(hm[0])
	if err != nil || hour < 1 || hour > 12 {
		return WallClock{}, fmt.Errorf("invalid hour in wall clock %q", s)
	}
	minute, err := strconv.Atoi(hm[1])
	if err != nil || minute < 0 || minute > 59 {
		return WallClock{}, fmt.Errorf("invalid minute in wall clock %q", s)
	}

	period := Period(strings.ToUpper(fields[1]))
	if period != PeriodAM && period != PeriodPM {
		return WallClock{}, fmt.Errorf("invalid period in wall clock %q", s)
	}

	return WallClock{Hour: hour, Minute: minute, Period: period}, nil
}

func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d %s", w.Hour, w.Minute, w.Period)
}

// hour24 maps 12 AM to 0 and 12 PM to 12.
func (w WallClock) hour24() int {
	h := w.Hour % 12
	if w.Period == PeriodPM {
		h += 12
	}
	return h
}

// On places the reading on the calendar day of day, in day's location.
func (w WallClock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, w.hour24(), w.Minute, 0, 0, day.Location())
}

// WorkedSpan is the raw span between two readings taken on the same day.
// A clock-out that is not strictly after clock-in is moved forward 24h,
// once, to account for shifts crossing midnight.
func WorkedSpan(in, out WallClock, day time.Time) time.Duration {
	start := in.On(day)
	end := out.On(day)
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return end.Sub(start)
}
