// Package stats computes reading statistics over a book collection.
//
// Every function is pure: the current time and the user's excluded weekdays
// are passed in, and empty input yields zero values or the NoData sentinel.
package stats

import (
	"github.com/magabrotheeeer/book-collection/internal/models"
)

const (
	// NoData marks a statistic that has nothing to be computed from.
	NoData = "No data"
	// UnknownGenre is counted for books without a genre.
	UnknownGenre = "Unknown"
)

// Basic is the statistics block available to every tier.
type Basic struct {
	TotalBooks      int     `json:"total_books"`
	TotalPages      int     `json:"total_pages"`
	AverageRating   float64 `json:"average_rating"`
	MostCommonGenre string  `json:"most_common_genre"`
}

// ComputeBasic returns the basic statistics of books.
func ComputeBasic(books []models.Book) Basic {
	return Basic{
		TotalBooks:      len(books),
		TotalPages:      TotalPages(books),
		AverageRating:   AverageRating(books),
		MostCommonGenre: MostCommonGenre(books),
	}
}

// TotalPages sums page counts, treating a missing count as 0.
func TotalPages(books []models.Book) int {
	total := 0
	for _, b := range books {
		total += b.Pages()
	}
	return total
}

// AverageRating is the mean over rated books, or 0 when none is rated.
func AverageRating(books []models.Book) float64 {
	var sum float64
	var n int
	for _, b := range books {
		if b.Rating == nil {
			continue
		}
		sum += *b.Rating
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// MostCommonGenre returns the mode of the genre field. A missing genre
// counts as UnknownGenre and ties go to the genre seen first.
func MostCommonGenre(books []models.Book) string {
	if len(books) == 0 {
		return NoData
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, b := range books {
		g := b.Genre
		if g == "" {
			g = UnknownGenre
		}
		if _, ok := counts[g]; !ok {
			order = append(order, g)
		}
		counts[g]++
	}

	best := order[0]
	for _, g := range order[1:] {
		if counts[g] > counts[best] {
			best = g
		}
	}
	return best
}
