package stats

import (
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// StreakInactivityLimit is how many days may pass after the last reading
// activity before the current streak drops to zero.
const StreakInactivityLimit = 7

// period is a reading interval expressed in calendar days.
type period struct {
	start, end time.Time
}

// readingPeriods returns one period per started book. Books still in
// progress run until today.
func readingPeriods(books []models.Book, now time.Time) []period {
	loc := now.Location()
	today := calendar.Day(now, loc)

	out := make([]period, 0, len(books))
	for _, b := range books {
		if b.StartedAt == nil {
			continue
		}
		p := period{start: calendar.Day(*b.StartedAt, loc), end: today}
		if b.FinishedAt != nil {
			p.end = calendar.Day(*b.FinishedAt, loc)
		}
		if p.end.Before(p.start) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func activeDays(periods []period) map[time.Time]bool {
	days := make(map[time.Time]bool)
	for _, p := range periods {
		for d := p.start; !d.After(p.end); d = d.AddDate(0, 0, 1) {
			days[d] = true
		}
	}
	return days
}

func bounds(periods []period) (earliest, latest time.Time) {
	earliest, latest = periods[0].start, periods[0].end
	for _, p := range periods[1:] {
		if p.start.Before(earliest) {
			earliest = p.start
		}
		if p.end.After(latest) {
			latest = p.end
		}
	}
	return earliest, latest
}

// CurrentStreak counts consecutive active days walking back from today.
// Excluded weekdays are skipped: they neither count nor break the run.
func CurrentStreak(books []models.Book, now time.Time, excluded map[time.Weekday]bool) int {
	periods := readingPeriods(books, now)
	if len(periods) == 0 {
		return 0
	}

	today := calendar.Day(now, now.Location())
	earliest, latest := bounds(periods)
	if calendar.DaysBetween(latest, today) > StreakInactivityLimit {
		return 0
	}

	active := activeDays(periods)
	streak := 0
	for d := today; !d.Before(earliest); d = d.AddDate(0, 0, -1) {
		switch {
		case active[d]:
			streak++
		case excluded[d.Weekday()]:
		default:
			return streak
		}
	}
	return streak
}

// LongestStreak is the longest run of active days in the whole history,
// with the same excluded weekday rule as CurrentStreak.
func LongestStreak(books []models.Book, now time.Time, excluded map[time.Weekday]bool) int {
	periods := readingPeriods(books, now)
	if len(periods) == 0 {
		return 0
	}

	earliest, latest := bounds(periods)
	active := activeDays(periods)

	longest, run := 0, 0
	for d := earliest; !d.After(latest); d = d.AddDate(0, 0, 1) {
		switch {
		case active[d]:
			run++
			longest = max(longest, run)
		case excluded[d.Weekday()]:
		default:
			run = 0
		}
	}
	return longest
}
