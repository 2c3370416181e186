// Package bonus computes event status and the reward multiplier of active events.
package bonus

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ifcoins/internal/models"
)

// Scope selects which grants an active event multiplies.
type Scope string

const (
	// ScopeEvents multiplies only grants explicitly marked as event-linked.
	ScopeEvents Scope = "events"
	// ScopeAll multiplies every grant made while an event is active.
	ScopeAll Scope = "all"
	// ScopeNone disables multipliers.
	ScopeNone Scope = "none"
)

// ParseScope parses a configured scope name.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeEvents, ScopeAll, ScopeNone:
		return sc, nil
	}
	return "", fmt.Errorf("bonus: unknown scope %q", s)
}

// Applies reports whether a grant gets the active multiplier under scope s.
func (s Scope) Applies(eventLinked bool) bool {
	switch s {
	case ScopeAll:
		return true
	case ScopeEvents:
		return eventLinked
	}
	return false
}

// Overlap decides which multiplier wins when several events are active at once.
type Overlap string

const (
	// OverlapMax applies the largest multiplier.
	OverlapMax Overlap = "max"
	// OverlapFirst applies the multiplier of the earliest-starting event.
	OverlapFirst Overlap = "first"
)

// ParseOverlap parses a configured overlap policy name.
func ParseOverlap(s string) (Overlap, error) {
	switch o := Overlap(strings.ToLower(strings.TrimSpace(s))); o {
	case OverlapMax, OverlapFirst:
		return o, nil
	}
	return "", fmt.Errorf("bonus: unknown overlap policy %q", s)
}

// One is the neutral multiplier.
var One = decimal.NewFromInt(1)

// Multipliers are stored as numeric(8, 2).
var (
	// MaxMultiplier is the largest multiplier an event may carry.
	MaxMultiplier = decimal.NewFromInt(100)
	// MultiplierPlaces is the number of decimal places a multiplier may use.
	MultiplierPlaces int32 = 2
)

// Status derives the status of e at now. Both window bounds are inclusive.
func Status(e models.Event, now time.Time) models.EventStatus {
	switch {
	case now.Before(e.StartDate):
		return models.EventUpcoming
	case now.After(e.EndDate):
		return models.EventFinished
	}
	return models.EventActive
}

// View attaches the status at now to e.
func View(e models.Event, now time.Time) models.EventView {
	return models.EventView{Event: e, Status: Status(e, now)}
}

// Active returns the events active at now, in input order.
func Active(events []models.Event, now time.Time) []models.Event {
	var out []models.Event
	for _, e := range events {
		if Status(e, now) == models.EventActive {
			out = append(out, e)
		}
	}
	return out
}

// ActiveMultiplier returns the multiplier in force at now and the event it comes from.
// With no active event it returns One and a nil event.
func ActiveMultiplier(events []models.Event, now time.Time, overlap Overlap) (decimal.Decimal, *models.Event) {
	var chosen *models.Event
	for i := range events {
		e := &events[i]
		if Status(*e, now) != models.EventActive {
			continue
		}
		if chosen == nil {
			chosen = e
			continue
		}
		switch overlap {
		case OverlapFirst:
			if e.StartDate.Before(chosen.StartDate) ||
				(e.StartDate.Equal(chosen.StartDate) && e.ID < chosen.ID) {
				chosen = e
			}
		default:
			if e.BonusMultiplier.GreaterThan(chosen.BonusMultiplier) {
				chosen = e
			}
		}
	}
	if chosen == nil {
		return One, nil
	}
	ev := *chosen
	return chosen.BonusMultiplier, &ev
}

// Apply multiplies amount and rounds half away from zero to whole coins.
func Apply(amount int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(multiplier).Round(0).IntPart()
}

// EndOfDay returns the last nanosecond of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ParseWindow parses event start and end inputs. Dates may be YYYY-MM-DD or RFC 3339;
// a date-only end is extended to cover its whole day.
func ParseWindow(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	s, _, err := parseDate(start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate: %w", err)
	}
	e, dateOnly, err := parseDate(end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate: %w", err)
	}
	if dateOnly {
		e = EndOfDay(e)
	}
	return s, e, nil
}

func parseDate(v string, loc *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", v)
	}
	return t, false, nil
}
