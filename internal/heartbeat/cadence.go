// Package heartbeat schedules recurring prompts that run as autonomous
// agent turns on dedicated sessions.
package heartbeat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

type cadenceKind int

const (
	cadenceInterval cadenceKind = iota
	cadenceDaily
	cadenceWeekly
	cadenceCron
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var intervalUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

// Cadence is a parsed schedule expression. Supported forms:
//
//	"every <N> (second|minute|hour|day|week)s?"
//	"every day at HH:MM"
//	"every (monday|...|sunday) at HH:MM"
//
// plus standard five-field cron expressions.
type Cadence struct {
	kind     cadenceKind
	interval time.Duration
	weekday  time.Weekday
	hour     int
	minute   int
	cron     string
}

// ParseCadence parses a schedule expression. Unparseable expressions are
// an error; callers must not schedule them.
func ParseCadence(expr string) (*Cadence, error) {
	text := strings.ToLower(strings.TrimSpace(expr))
	if text == "" {
		return nil, fmt.Errorf("empty cadence expression")
	}

	fields := strings.Fields(text)
	if fields[0] != "every" {
		// Not the human grammar — accept a raw cron expression.
		if gronx.New().IsValid(text) {
			return &Cadence{kind: cadenceCron, cron: text}, nil
		}
		return nil, fmt.Errorf("unrecognized cadence %q", expr)
	}

	switch {
	case len(fields) == 4 && fields[1] == "day" && fields[2] == "at":
		hour, minute, err := parseClock(fields[3])
		if err != nil {
			return nil, fmt.Errorf("cadence %q: %w", expr, err)
		}
		return &Cadence{kind: cadenceDaily, hour: hour, minute: minute}, nil

	case len(fields) == 4 && fields[2] == "at":
		day, ok := weekdays[fields[1]]
		if !ok {
			return nil, fmt.Errorf("cadence %q: unknown weekday %q", expr, fields[1])
		}
		hour, minute, err := parseClock(fields[3])
		if err != nil {
			return nil, fmt.Errorf("cadence %q: %w", expr, err)
		}
		return &Cadence{kind: cadenceWeekly, weekday: day, hour: hour, minute: minute}, nil

	case len(fields) == 3:
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("cadence %q: bad count %q", expr, fields[1])
		}
		unit, ok := intervalUnits[strings.TrimSuffix(fields[2], "s")]
		if !ok {
			return nil, fmt.Errorf("cadence %q: unknown unit %q", expr, fields[2])
		}
		return &Cadence{kind: cadenceInterval, interval: time.Duration(n) * unit}, nil
	}

	return nil, fmt.Errorf("unrecognized cadence %q", expr)
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return hour, minute, nil
}

// Next returns the first fire time strictly after the given instant.
func (c *Cadence) Next(after time.Time) time.Time {
	switch c.kind {
	case cadenceInterval:
		return after.Add(c.interval)

	case cadenceDaily:
		next := time.Date(after.Year(), after.Month(), after.Day(), c.hour, c.minute, 0, 0, after.Location())
		if !next.After(after) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case cadenceWeekly:
		next := time.Date(after.Year(), after.Month(), after.Day(), c.hour, c.minute, 0, 0, after.Location())
		days := (int(c.weekday) - int(next.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, days)
		if !next.After(after) {
			next = next.AddDate(0, 0, 7)
		}
		return next

	case cadenceCron:
		next, err := gronx.NextTickAfter(c.cron, after, false)
		if err != nil {
			// Validated at parse time; an error here means the clock did
			// something strange. Back off a minute and retry later.
			return after.Add(time.Minute)
		}
		return next
	}
	return after.Add(time.Minute)
}

func (c *Cadence) String() string {
	switch c.kind {
	case cadenceInterval:
		return fmt.Sprintf("every %s", c.interval)
	case cadenceDaily:
		return fmt.Sprintf("every day at %02d:%02d", c.hour, c.minute)
	case cadenceWeekly:
		return fmt.Sprintf("every %s at %02d:%02d", strings.ToLower(c.weekday.String()), c.hour, c.minute)
	case cadenceCron:
		return c.cron
	}
	return "invalid"
}
