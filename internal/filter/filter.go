// Package filter derives filtered and paginated views of a book collection.
// All functions are pure and never fail: missing book attributes are treated
// as absent rather than as errors.
package filter

import (
	"strings"

	"github.com/magabrotheeeer/book-collection/internal/models"
)

// DefaultPageCountCeiling is the lowest upper bound offered for page ranges.
const DefaultPageCountCeiling = 2000

// Criteria is the set of filters applied to a collection. Zero values disable
// the corresponding filter.
type Criteria struct {
	Search    string
	Genres    []string
	MinRating float64
	MinPages  int
	MaxPages  int
}

// IsZero reports whether no filter is active.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" && len(c.Genres) == 0 &&
		c.MinRating == 0 && c.MinPages == 0 && c.MaxPages == 0
}

// Apply returns the books matching every active criterion, preserving order.
func Apply(books []models.Book, c Criteria) []models.Book {
	out := make([]models.Book, 0, len(books))
	m := newMatcher(c)
	for _, b := range books {
		if m.match(b) {
			out = append(out, b)
		}
	}
	return out
}

type matcher struct {
	search string
	genres map[string]struct{}
	c      Criteria
}

func newMatcher(c Criteria) matcher {
	m := matcher{
		search: strings.ToLower(strings.TrimSpace(c.Search)),
		c:      c,
	}
	if len(c.Genres) > 0 {
		m.genres = make(map[string]struct{}, len(c.Genres))
		for _, g := range c.Genres {
			m.genres[g] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(b models.Book) bool {
	if m.search != "" &&
		!strings.Contains(strings.ToLower(b.Title), m.search) &&
		!strings.Contains(strings.ToLower(b.Author), m.search) {
		return false
	}

	if m.genres != nil {
		if _, ok := m.genres[b.Genre]; !ok {
			return false
		}
	}

	if m.c.MinRating > 0 && (b.Rating == nil || *b.Rating < m.c.MinRating) {
		return false
	}

	// books without a page count are never excluded by the range
	if b.PageCount != nil {
		pages := *b.PageCount
		if pages < m.c.MinPages {
			return false
		}
		if m.c.MaxPages > 0 && pages > m.c.MaxPages {
			return false
		}
	}

	return true
}

// PageCountCeiling returns the upper bound for a page-count range slider:
// DefaultPageCountCeiling, widened to the longest book in the collection.
func PageCountCeiling(books []models.Book) int {
	ceiling := DefaultPageCountCeiling
	for _, b := range books {
		if b.Pages() > ceiling {
			ceiling = b.Pages()
		}
	}
	return ceiling
}
