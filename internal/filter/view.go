package filter

import "github.com/magabrotheeeer/book-collection/internal/models"

// View is the filter and pagination state of a collection screen.
// Changing any filter value moves the view back to the first page.
type View struct {
	criteria Criteria
	page     int
	pageSize int
}

// NewView returns a view with no filters on page 1.
func NewView(pageSize int) *View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &View{page: 1, pageSize: pageSize}
}

// Criteria returns a copy of the active filters.
func (v *View) Criteria() Criteria {
	c := v.criteria
	c.Genres = append([]string(nil), v.criteria.Genres...)
	return c
}

// Page returns the current 1-based page.
func (v *View) Page() int { return v.page }

// PageSize returns the page size.
func (v *View) PageSize() int { return v.pageSize }

func (v *View) SetSearch(s string) {
	v.criteria.Search = s
	v.page = 1
}

func (v *View) SetGenres(genres []string) {
	v.criteria.Genres = append([]string(nil), genres...)
	v.page = 1
}

func (v *View) SetMinRating(r float64) {
	v.criteria.MinRating = r
	v.page = 1
}

func (v *View) SetPageRange(minPages, maxPages int) {
	v.criteria.MinPages = minPages
	v.criteria.MaxPages = maxPages
	v.page = 1
}

// SetCriteria replaces all filters at once.
func (v *View) SetCriteria(c Criteria) {
	v.criteria = c
	v.criteria.Genres = append([]string(nil), c.Genres...)
	v.page = 1
}

// Clear removes every filter.
func (v *View) Clear() {
	v.SetCriteria(Criteria{})
}

// SetPage moves to page p. Values below 1 select the first page.
func (v *View) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	v.page = p
}

// Result is a computed view over a collection.
type Result struct {
	Books            []models.Book `json:"books"`
	Total            int           `json:"total"`
	Page             int           `json:"page"`
	PageSize         int           `json:"page_size"`
	TotalPages       int           `json:"total_pages"`
	PageCountCeiling int           `json:"page_count_ceiling"`
}

// Result applies the view to books.
func (v *View) Result(books []models.Book) Result {
	filtered := Apply(books, v.criteria)
	return Result{
		Books:            Paginate(filtered, v.page, v.pageSize),
		Total:            len(filtered),
		Page:             v.page,
		PageSize:         v.pageSize,
		TotalPages:       TotalPages(len(filtered), v.pageSize),
		PageCountCeiling: PageCountCeiling(books),
	}
}
