package stats

import (
	"sort"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// SprintWindow bounds the period a reading sprint may span.
const SprintWindow = 14 * 24 * time.Hour

// Seasons in tie-break order.
var Seasons = []string{"Spring", "Summer", "Fall", "Winter"}

// Season is the season with the most completions.
type Season struct {
	Season string `json:"season"`
	Count  int    `json:"count"`
}

// Sprint is the densest run of completions inside SprintWindow.
type Sprint struct {
	Books int        `json:"books"`
	Days  int        `json:"days"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// MonthProgress holds started and finished counts of one month.
type MonthProgress struct {
	Month    string `json:"month"`
	Started  int    `json:"started"`
	Finished int    `json:"finished"`
}

func seasonOf(m time.Month) string {
	// zero-indexed months 2-4 are spring, 5-7 summer, 8-10 fall
	switch i := int(m) - 1; {
	case i >= 2 && i <= 4:
		return "Spring"
	case i >= 5 && i <= 7:
		return "Summer"
	case i >= 8 && i <= 10:
		return "Fall"
	default:
		return "Winter"
	}
}

// PeakSeason buckets this year's completions by season.
func PeakSeason(books []models.Book, now time.Time) Season {
	loc := now.Location()
	counts := make(map[string]int, len(Seasons))
	for _, b := range books {
		if b.FinishedAt == nil {
			continue
		}
		f := b.FinishedAt.In(loc)
		if f.Year() != now.Year() {
			continue
		}
		counts[seasonOf(f.Month())]++
	}

	best := Season{Season: NoData}
	for _, s := range Seasons {
		if counts[s] > best.Count {
			best = Season{Season: s, Count: counts[s]}
		}
	}
	return best
}

// BestSprint looks at every completion as the start of a SprintWindow and
// counts the completions inside it. More books win, then fewer days between
// the first and last completion.
func BestSprint(books []models.Book) Sprint {
	finished := make([]time.Time, 0, len(books))
	for _, b := range books {
		if b.StartedAt != nil && b.FinishedAt != nil {
			finished = append(finished, *b.FinishedAt)
		}
	}
	if len(finished) < 2 {
		return Sprint{}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].Before(finished[j]) })

	var best Sprint
	for i, start := range finished {
		limit := start.Add(SprintWindow)
		last := i
		for j := i + 1; j < len(finished) && !finished[j].After(limit); j++ {
			last = j
		}

		count := last - i + 1
		days := calendar.DaysBetween(calendar.Day(start, nil), calendar.Day(finished[last], nil)) + 1
		if count > best.Books || (count == best.Books && days < best.Days) {
			s, e := start, finished[last]
			best = Sprint{Books: count, Days: days, Start: &s, End: &e}
		}
	}
	return best
}

// MonthlyProgress returns one entry per month of the current year.
func MonthlyProgress(books []models.Book, now time.Time) []MonthProgress {
	loc := now.Location()
	out := make([]MonthProgress, 12)
	for i := range out {
		out[i].Month = time.Month(i + 1).String()[:3]
	}

	for _, b := range books {
		if b.StartedAt != nil {
			if s := b.StartedAt.In(loc); s.Year() == now.Year() {
				out[s.Month()-1].Started++
			}
		}
		if b.FinishedAt != nil {
			if f := b.FinishedAt.In(loc); f.Year() == now.Year() {
				out[f.Month()-1].Finished++
			}
		}
	}
	return out
}

// PreferredDays compares completions per weekend day with completions per
// weekday and reports "Weekends" or "Weekdays".
func PreferredDays(books []models.Book, now time.Time) string {
	loc := now.Location()
	weekend, weekday := 0, 0
	for _, b := range books {
		if b.FinishedAt == nil {
			continue
		}
		switch b.FinishedAt.In(loc).Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		default:
			weekday++
		}
	}

	if weekend == 0 && weekday == 0 {
		return NoData
	}
	if float64(weekend)/2 > float64(weekday)/5 {
		return "Weekends"
	}
	return "Weekdays"
}
