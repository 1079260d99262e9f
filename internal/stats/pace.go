package stats

import (
	"math"
	"time"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// ReadingSpeed is pages per day over books finished in the last 30 days.
// Each such book is assumed to take a week, capped at the 30 day window.
func ReadingSpeed(books []models.Book, now time.Time) int {
	cutoff := now.AddDate(0, 0, -30)

	pages, n := 0, 0
	for _, b := range books {
		if b.FinishedAt == nil || b.FinishedAt.Before(cutoff) || b.Pages() <= 0 {
			continue
		}
		pages += b.Pages()
		n++
	}
	if n == 0 {
		return 0
	}

	days := max(1, min(30, n*7))
	return int(math.Round(float64(pages) / float64(days)))
}

// Velocity is books finished per month over the last three months,
// rounded to one decimal.
func Velocity(books []models.Book, now time.Time) float64 {
	cutoff := now.AddDate(0, -3, 0)

	n := 0
	for _, b := range books {
		if b.FinishedAt != nil && !b.FinishedAt.Before(cutoff) {
			n++
		}
	}
	return math.Round(float64(n)/3*10) / 10
}

// CompletionRate is the percentage of books started in the last six months
// that are finished. It is 0 when nothing was started.
func CompletionRate(books []models.Book, now time.Time) int {
	cutoff := now.AddDate(0, -6, 0)

	started, finished := 0, 0
	for _, b := range books {
		if b.StartedAt == nil || b.StartedAt.Before(cutoff) {
			continue
		}
		started++
		if b.FinishedAt != nil {
			finished++
		}
	}
	if started == 0 {
		return 0
	}
	return int(math.Round(float64(finished) / float64(started) * 100))
}

// AverageReadingDays is the mean number of days from start to finish over
// all completed books, rounded.
func AverageReadingDays(books []models.Book) int {
	total, n := 0, 0
	for _, b := range books {
		if b.StartedAt == nil || b.FinishedAt == nil {
			continue
		}
		total += calendar.CeilDays(b.FinishedAt.Sub(*b.StartedAt))
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

// AverageCompletionDays is the mean reading time of books finished in the
// last six months. Every book takes at least one day.
func AverageCompletionDays(books []models.Book, now time.Time) int {
	cutoff := now.AddDate(0, -6, 0)

	total, n := 0, 0
	for _, b := range books {
		if b.StartedAt == nil || b.FinishedAt == nil || b.FinishedAt.Before(cutoff) {
			continue
		}
		total += max(1, calendar.CeilDays(b.FinishedAt.Sub(*b.StartedAt)))
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

// InProgress counts started books without a finish date.
func InProgress(books []models.Book) int {
	n := 0
	for _, b := range books {
		if b.StartedAt != nil && b.FinishedAt == nil {
			n++
		}
	}
	return n
}
