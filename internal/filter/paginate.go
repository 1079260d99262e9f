package filter

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 12

// MaxPageSize caps the page size accepted from callers.
const MaxPageSize = 1 << 20

// Paginate returns the 1-based page of items. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	// compare page indexes, not offsets: (page-1)*size can overflow
	if len(items) == 0 || page-1 > (len(items)-1)/size {
		return []T{}
	}

	start := (page - 1) * size
	end := start + min(size, len(items)-start)
	return items[start:end]
}

// TotalPages returns how many pages of size are needed for total items.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	pages := total / size
	if total%size != 0 {
		pages++
	}
	return pages
}
