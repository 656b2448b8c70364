package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/dori/mindmap/internal/model"
)

// quickAdd is a task title with inline attributes stripped out:
//
//	Buy milk !2 on:friday
//
// Priority is !1 (urgent) to !4 or one of !urgent !high !medium !low.
// The scheduled day is on: or due: followed by today, tomorrow, a weekday,
// nextweek or a date (2006-01-02, 01/02/2006, 01/02).
type quickAdd struct {
	Title       string
	Priority    *int
	ScheduledAt *time.Time
}

func parseQuickAdd(text string, now time.Time) quickAdd {
	var q quickAdd
	var titleParts []string

	for _, word := range strings.Fields(text) {
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(word, "!") && len(word) > 1:
			if p, ok := parsePriority(strings.TrimPrefix(lower, "!")); ok {
				q.Priority = &p
				continue
			}
		case strings.HasPrefix(lower, "on:"), strings.HasPrefix(lower, "due:"):
			_, date, _ := strings.Cut(lower, ":")
			if t := parseNaturalDate(date, now); t != nil {
				q.ScheduledAt = t
				continue
			}
		}
		titleParts = append(titleParts, word)
	}

	q.Title = strings.Join(titleParts, " ")
	return q
}

func parsePriority(s string) (int, bool) {
	switch s {
	case "urgent", "u":
		return 1, true
	case "high", "hi", "h":
		return 2, true
	case "medium", "med", "m":
		return 3, true
	case "low", "l":
		return 4, true
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < model.PriorityMin || p > model.PriorityMax {
		return 0, false
	}
	return p, true
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// parseNaturalDate returns the start of the named day, nil when s is not a date
func parseNaturalDate(s string, now time.Time) *time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch s {
	case "today":
		return &today
	case "tomorrow", "tom":
		t := today.AddDate(0, 0, 1)
		return &t
	case "nextweek":
		t := today.AddDate(0, 0, 7)
		return &t
	}
	if day, ok := weekdays[s]; ok {
		return nextWeekday(today, day)
	}

	for _, format := range []string{"2006-01-02", "01/02/2006"} {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return &t
		}
	}
	// month/day without a year means the next such day
	if t, err := time.ParseInLocation("01/02", s, now.Location()); err == nil {
		t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
		if t.Before(today) {
			t = t.AddDate(1, 0, 0)
		}
		return &t
	}
	return nil
}

// nextWeekday is the first day after today falling on day
func nextWeekday(today time.Time, day time.Weekday) *time.Time {
	daysUntil := int(day - today.Weekday())
	if daysUntil <= 0 {
		daysUntil += 7
	}
	t := today.AddDate(0, 0, daysUntil)
	return &t
}

func formatDate(t, now time.Time) string {
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today"
	}
	tomorrow := now.AddDate(0, 0, 1)
	if t.Year() == tomorrow.Year() && t.YearDay() == tomorrow.YearDay() {
		return "tomorrow"
	}
	if t.Year() == now.Year() {
		return t.Format("Mon, Jan 2")
	}
	return t.Format("Jan 2, 2006")
}
