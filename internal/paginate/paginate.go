// Package paginate slices ordered child lists into pages.
package paginate

// Defaults applied at the transport boundary when page or limit is absent.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Paginate returns items[(page-1)*limit : page*limit], clipped to the list.
// A page past the end yields an empty slice. Non-positive page or limit also
// yields an empty slice; callers are expected to coerce them first.
func Paginate[T any](items []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) || start < 0 { // start < 0 on overflow
		return []T{}
	}
	end := start + limit
	if end > len(items) || end < start {
		end = len(items)
	}
	return items[start:end:end]
}
