// Package pagination implements keyset pagination over records ordered by
// (created_at DESC, id DESC): the opaque cursor codec, limit sanitization and
// page construction. The storage-side predicate lives with each repository.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

const cursorSeparator = "|"

// Cursor is the resume position of a keyset scan: the last row already
// returned to the client.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c Cursor) string {
	combined := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSeparator + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(combined))
}

// DecodeCursor is the inverse of EncodeCursor. Every failure wraps
// domain.ErrInvalidCursor.
func DecodeCursor(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, fmt.Errorf("%w: empty token", domain.ErrInvalidCursor)
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(token)
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: not base64", domain.ErrInvalidCursor)
	}

	parts := strings.Split(string(raw), cursorSeparator)
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("%w: malformed token", domain.ErrInvalidCursor)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp", domain.ErrInvalidCursor)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad id", domain.ErrInvalidCursor)
	}

	return Cursor{CreatedAt: createdAt.UTC(), ID: id.String()}, nil
}

// ParseCursor decodes an optional token; an empty token means "start at the
// newest record" and yields nil.
func ParseCursor(token string) (*Cursor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	c, err := DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
