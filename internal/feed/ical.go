package feed

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"confeed/internal/schedule"
)

// Calendar exports the timed schedule as an iCalendar document, one
// VEVENT per entry. Untimed entries cannot be represented and are
// skipped.
func Calendar(entries []schedule.Entry, calendarName string) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//confeed//schedule//EN")
	if calendarName != "" {
		cal.SetName(calendarName)
	}

	for _, e := range entries {
		if e.StartTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, e.StartTime)
		if err != nil {
			return "", fmt.Errorf("entry %d: parse start time %q: %w", e.PID, e.StartTime, err)
		}
		end, err := time.Parse(time.RFC3339, e.EndTime)
		if err != nil {
			return "", fmt.Errorf("entry %d: parse end time %q: %w", e.PID, e.EndTime, err)
		}

		ev := cal.AddEvent(fmt.Sprintf("programme-%d@confeed", e.PID))
		ev.SetDtStampTime(start)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(e.Title)
		ev.SetDescription(e.Summary)
		if e.LocationLabel != schedule.Undefined {
			ev.SetLocation(e.LocationLabel)
		}
		if e.LineNames != schedule.Undefined {
			ev.SetProperty(ics.ComponentPropertyCategories, e.LineNames)
		}
	}

	return cal.Serialize(), nil
}
