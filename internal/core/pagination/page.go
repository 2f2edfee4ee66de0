package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Request is a sanitized keyset page request. A nil Cursor starts at the
// newest record.
type Request struct {
	Cursor *Cursor
	Limit  int
}

// NewRequest decodes token and clamps limit.
func NewRequest(token string, limit *int) (Request, error) {
	c, err := ParseCursor(token)
	if err != nil {
		return Request{}, err
	}
	return Request{Cursor: c, Limit: SanitizeLimit(limit)}, nil
}

// FetchSize is the number of rows a repository should ask for: one more than
// the page so the presence of a following page is known without a COUNT.
func (r Request) FetchSize() int {
	return r.Limit + 1
}

type Page[T any] struct {
	Items      []T
	NextCursor *Cursor
}

// SanitizeLimit maps nil to DefaultLimit and clamps everything else into
// [1, MaxLimit].
func SanitizeLimit(limit *int) int {
	if limit == nil {
		return DefaultLimit
	}
	switch n := *limit; {
	case n < 1:
		return 1
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// BuildPage turns rows fetched with FetchSize into a page. rows must already
// be in (created_at DESC, id DESC) order.
func BuildPage[T any](rows []T, limit int, key func(T) Cursor) Page[T] {
	if limit < 1 {
		limit = 1
	}
	if len(rows) <= limit {
		if rows == nil {
			rows = []T{}
		}
		return Page[T]{Items: rows}
	}

	items := rows[:limit]
	next := key(items[len(items)-1])
	return Page[T]{Items: items, NextCursor: &next}
}

// Less reports whether a sorts before b in the listing order, i.e. a is
// newer, or equally new with a greater id.
func Less(a, b Cursor) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
