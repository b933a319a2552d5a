package mcpservice

import "strconv"

// defaultPageSize bounds listings of the static containers.
const defaultPageSize = 50

// Page represents a single page of results with an optional cursor for fetching
// the next page. Items is never nil.
type Page[T any] struct {
	Items      []T
	NextCursor *string
}

// paginate slices all according to an offset cursor. Cursors are opaque to
// clients; here they are the decimal offset of the first item.
func paginate[T any](all []T, pageSize int, cursor *string) Page[T] {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	start := parseCursor(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := min(start+pageSize, len(all))
	p := Page[T]{Items: make([]T, end-start)}
	copy(p.Items, all[start:end])
	if end < len(all) {
		next := strconv.Itoa(end)
		p.NextCursor = &next
	}
	return p
}

func parseCursor(cursor *string) int {
	if cursor == nil || *cursor == "" {
		return 0
	}
	n, err := strconv.Atoi(*cursor)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
