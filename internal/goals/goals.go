// Package goals computes reading-goal intervals, progress and the summary
// of a user's goal history.
package goals

import (
	"math"
	"sort"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// Bounds returns the interval containing t as [start, end). Weeks start on
// Sunday. Unknown intervals are treated as yearly.
func Bounds(interval string, t time.Time) (start, end time.Time) {
	day := calendar.StartOfDay(t)
	switch interval {
	case models.IntervalDaily:
		return day, day.AddDate(0, 0, 1)
	case models.IntervalWeekly:
		start = day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case models.IntervalMonthly:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		start = time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(1, 0, 0)
	}
}

// FinishedBetween counts books finished in [from, to).
func FinishedBetween(books []models.Book, from, to time.Time) int {
	n := 0
	for _, b := range books {
		if b.FinishedAt == nil || b.IsDeleted() {
			continue
		}
		if !b.FinishedAt.Before(from) && b.FinishedAt.Before(to) {
			n++
		}
	}
	return n
}

// Progress reports completions in the interval containing now against target.
// PercentComplete stays within [0, 100] and is 0 for a zero target.
func Progress(books []models.Book, target int, interval string, now time.Time) models.GoalProgress {
	if !models.IsInterval(interval) {
		interval = models.DefaultInterval
	}
	start, end := Bounds(interval, now)
	read := FinishedBetween(books, start, end)

	var percent float64
	if target > 0 {
		percent = float64(read) / float64(target) * 100
		percent = math.Round(min(100, max(0, percent))*10) / 10
	}

	return models.GoalProgress{
		Interval:        interval,
		Target:          target,
		BooksRead:       read,
		PercentComplete: percent,
		StartDate:       start,
		EndDate:         end,
	}
}

// NewHistory builds the goal-history row for a book finished at finishedAt.
// The interval runs from its start (in UTC) to the end of the finish day and
// achieved counts the user's books finished in that span.
func NewHistory(userUID, interval string, target int, books []models.Book, finishedAt time.Time) models.GoalHistory {
	if !models.IsInterval(interval) {
		interval = models.DefaultInterval
	}
	finishedAt = finishedAt.UTC()
	start, _ := Bounds(interval, finishedAt)
	end := calendar.EndOfDay(finishedAt)

	achieved := FinishedBetween(books, start, end.Add(time.Nanosecond))
	return models.GoalHistory{
		UserUID:      userUID,
		Interval:     interval,
		Target:       target,
		Achieved:     achieved,
		StartDate:    start,
		EndDate:      end,
		WasCompleted: achieved >= target,
	}
}

// MaxGap is the longest distance between two met goals that still keeps a
// goal streak alive.
func MaxGap(interval string) time.Duration {
	const day = 24 * time.Hour
	switch interval {
	case models.IntervalDaily:
		return day
	case models.IntervalWeekly:
		return 7 * day
	case models.IntervalMonthly:
		return 31 * day
	case models.IntervalYearly:
		return 365 * day
	default:
		return 7 * day
	}
}

// Summarize aggregates goal history in end-date order. A missed goal resets
// the current streak.
func Summarize(histories []models.GoalHistory) models.GoalStats {
	if len(histories) == 0 {
		return models.GoalStats{}
	}

	sorted := append([]models.GoalHistory(nil), histories...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].EndDate.Before(sorted[j].EndDate) })

	type rate struct{ met, total int }
	rates := make(map[string]*rate)
	var order []string

	stats := models.GoalStats{TotalGoalsSet: len(sorted)}
	var (
		streak    int
		overshoot float64
		lastMet   *time.Time
	)
	for i, h := range sorted {
		r, ok := rates[h.Interval]
		if !ok {
			r = &rate{}
			rates[h.Interval] = r
			order = append(order, h.Interval)
		}
		r.total++

		if !h.WasCompleted {
			streak = 0
			lastMet = nil
			continue
		}

		r.met++
		stats.TotalGoalsMet++
		if h.Target > 0 {
			if o := float64(h.Achieved-h.Target) / float64(h.Target) * 100; o > 0 {
				overshoot += o
			}
		}

		end := h.EndDate
		if lastMet == nil || end.Sub(*lastMet) <= MaxGap(h.Interval) {
			streak++
		} else {
			streak = 1
		}
		stats.LongestGoalStreak = max(stats.LongestGoalStreak, streak)
		lastMet = &end

		if i == len(sorted)-1 {
			stats.LastGoalMet = &end
		}
	}

	stats.CurrentGoalStreak = streak
	stats.GoalCompletionRate = float64(stats.TotalGoalsMet) / float64(stats.TotalGoalsSet) * 100
	if stats.TotalGoalsMet > 0 {
		stats.AverageOvershoot = overshoot / float64(stats.TotalGoalsMet)
	}

	best := 0.0
	for _, interval := range order {
		r := rates[interval]
		if v := float64(r.met) / float64(r.total) * 100; v > best {
			best = v
			stats.BestInterval = interval
		}
	}
	return stats
}
