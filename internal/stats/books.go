package stats

import (
	"math"
	"sort"

	"github.com/magabrotheeeer/book-collection/internal/lib/calendar"
	"github.com/magabrotheeeer/book-collection/internal/models"
)

// GenreDistributionLimit caps the number of genres in GenreDistribution.
const GenreDistributionLimit = 8

// BookRef identifies a book in a statistic.
type BookRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// FastRead is the book read with the most pages per day.
type FastRead struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PagesPerDay float64 `json:"pages_per_day"`
	Days        int     `json:"days"`
}

// GenreRating is the mean rating of a genre.
type GenreRating struct {
	Genre  string  `json:"genre"`
	Rating float64 `json:"rating"`
}

// GenreCount is a per-genre total: books for GenreDistribution, pages for
// PagesByGenre.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// RatingBucket counts books rated Rating after rounding to half a star.
type RatingBucket struct {
	Rating float64 `json:"rating"`
	Count  int     `json:"count"`
}

// AveragePages is the mean page count of books with a known, positive count.
func AveragePages(books []models.Book) int {
	total, n := 0, 0
	for _, b := range books {
		if b.Pages() > 0 {
			total += b.Pages()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

// LongestBook returns the book with the most pages, or nil. The first of
// equally long books wins.
func LongestBook(books []models.Book) *BookRef {
	var ref *BookRef
	for _, b := range books {
		if b.Pages() <= 0 {
			continue
		}
		if ref == nil || b.Pages() > ref.Pages {
			ref = &BookRef{ID: b.ID, Title: b.Title, Pages: b.Pages()}
		}
	}
	return ref
}

// ShortestBook returns the book with the fewest positive pages, or nil.
func ShortestBook(books []models.Book) *BookRef {
	var ref *BookRef
	for _, b := range books {
		if b.Pages() <= 0 {
			continue
		}
		if ref == nil || b.Pages() < ref.Pages {
			ref = &BookRef{ID: b.ID, Title: b.Title, Pages: b.Pages()}
		}
	}
	return ref
}

// FastestRead returns the completed book with the highest pages per day.
// Reading time is at least one day.
func FastestRead(books []models.Book) *FastRead {
	var best *FastRead
	for _, b := range books {
		if b.StartedAt == nil || b.FinishedAt == nil || b.Pages() <= 0 {
			continue
		}
		days := max(1, calendar.CeilDays(b.FinishedAt.Sub(*b.StartedAt)))
		ppd := math.Round(float64(b.Pages())/float64(days)*10) / 10
		if best == nil || ppd > best.PagesPerDay {
			best = &FastRead{ID: b.ID, Title: b.Title, PagesPerDay: ppd, Days: days}
		}
	}
	return best
}

// GenreVariety counts distinct genres. Books without a genre are ignored.
func GenreVariety(books []models.Book) int {
	seen := make(map[string]struct{})
	for _, b := range books {
		if b.Genre != "" {
			seen[b.Genre] = struct{}{}
		}
	}
	return len(seen)
}

// BestRatedGenre returns the genre with the highest mean rating over its
// rated books. Ties go to the genre seen first.
func BestRatedGenre(books []models.Book) GenreRating {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]*acc)
	var order []string
	for _, b := range books {
		if b.Genre == "" || b.Rating == nil {
			continue
		}
		a, ok := sums[b.Genre]
		if !ok {
			a = &acc{}
			sums[b.Genre] = a
			order = append(order, b.Genre)
		}
		a.sum += *b.Rating
		a.n++
	}

	best, bestMean := GenreRating{Genre: NoData}, -1.0
	for _, g := range order {
		mean := sums[g].sum / float64(sums[g].n)
		if mean > bestMean {
			bestMean = mean
			best = GenreRating{Genre: g, Rating: math.Round(mean*100) / 100}
		}
	}
	return best
}

// GenreDistribution counts books per genre, largest first, capped at
// GenreDistributionLimit entries.
func GenreDistribution(books []models.Book) []GenreCount {
	out := genreTotals(books, func(models.Book) int { return 1 })
	if len(out) > GenreDistributionLimit {
		out = out[:GenreDistributionLimit]
	}
	return out
}

// PagesByGenre sums page counts per genre, largest first.
func PagesByGenre(books []models.Book) []GenreCount {
	return genreTotals(books, models.Book.Pages)
}

func genreTotals(books []models.Book, value func(models.Book) int) []GenreCount {
	index := make(map[string]int)
	out := make([]GenreCount, 0)
	for _, b := range books {
		if b.Genre == "" {
			continue
		}
		i, ok := index[b.Genre]
		if !ok {
			i = len(out)
			index[b.Genre] = i
			out = append(out, GenreCount{Genre: b.Genre})
		}
		out[i].Count += value(b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// RatingDistribution returns 11 half-star buckets from 0 to 5.
func RatingDistribution(books []models.Book) []RatingBucket {
	out := make([]RatingBucket, 11)
	for i := range out {
		out[i].Rating = float64(i) / 2
	}
	for _, b := range books {
		if b.Rating == nil {
			continue
		}
		i := int(math.Round(*b.Rating * 2))
		out[min(max(i, 0), 10)].Count++
	}
	return out
}
