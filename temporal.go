package untangle

import (
	"fmt"
	"strings"
	"time"
)

// TimeContext is the timestamp context a brain dump was captured in. All
// temporal phrases are resolved against it so downstream scheduling never
// reinterprets natural language.
type TimeContext struct {
	Now time.Time
}

// Prompt renders the context for the planner prompt.
func (tc TimeContext) Prompt() string {
	return fmt.Sprintf("Current time: %s (%s)", tc.Now.Format(time.RFC3339), tc.Now.Weekday())
}

// Hours of day used for date-only phrases.
const (
	hourMorning   = 9
	hourAfternoon = 15
	hourEvening   = 19
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

// Resolve maps a temporal phrase to a concrete time. The second return value
// is false when the phrase cannot be resolved without knowing the user's
// chronotype (e.g. a bare "in the morning"); such anchors are settled by the
// executor against the profile.
func (tc TimeContext) Resolve(phrase string) (time.Time, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return time.Time{}, false
	}

	// Already-concrete anchors pass through.
	if t, err := time.Parse(time.RFC3339, phrase); err != nil {
		if d, err := time.ParseInLocation("2006-01-02", phrase, tc.Now.Location()); err == nil {
			return tc.at(d, hourMorning), true
		}
	} else {
		return t, true
	}

	for _, prefix := range []string{"by ", "on ", "due ", "at ", "this ", "before "} {
		p = strings.TrimPrefix(p, prefix)
	}

	hour := hourMorning
	switch {
	case strings.Contains(p, "night"), strings.Contains(p, "evening"):
		hour = hourEvening
	case strings.Contains(p, "afternoon"):
		hour = hourAfternoon
	}

	day := tc.startOfDay(tc.Now)
	switch {
	case p == "tonight", p == "evening", p == "afternoon", p == "morning",
		strings.HasPrefix(p, "today"), strings.HasSuffix(p, "today"):
		return tc.at(day, hour), true

	case strings.Contains(p, "tomorrow"):
		return tc.at(day.AddDate(0, 0, 1), hour), true

	case p == "weekend", p == "the weekend":
		return tc.at(day.AddDate(0, 0, tc.daysUntil(time.Saturday)), hour), true
	}

	// Weekday names, optionally prefixed with "next" (one week beyond the
	// coming occurrence).
	nextWeek := false
	if rest, ok := strings.CutPrefix(p, "next "); ok {
		nextWeek = true
		p = rest
	}
	for name, wd := range weekdays {
		if strings.Contains(p, name) {
			days := tc.daysUntil(wd)
			if nextWeek {
				days += 7
			}
			return tc.at(day.AddDate(0, 0, days), hour), true
		}
	}

	return time.Time{}, false
}

// daysUntil returns the number of days from now until the coming occurrence
// of wd. The same weekday resolves to today, so "Friday" said on a Wednesday
// is two days ahead.
func (tc TimeContext) daysUntil(wd time.Weekday) int {
	return (int(wd) - int(tc.Now.Weekday()) + 7) % 7
}

func (tc TimeContext) startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (tc TimeContext) at(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}
