package sqlite

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/pagination"
)

// keysetAfter restricts a (created_at DESC, id DESC) scan to rows strictly
// after c. The comparison is a single row value so that rows sharing c's
// timestamp are neither skipped nor repeated.
func keysetAfter(c *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c == nil {
			return db
		}
		return db.Where("(created_at, id) < (?, ?)", c.CreatedAt.UTC(), c.ID)
	}
}

// keysetPage applies the cursor, the listing order and the limit+1 fetch size.
func keysetPage(page pagination.Request) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(keysetAfter(page.Cursor)).
			Order("created_at DESC").
			Order("id DESC").
			Limit(page.FetchSize())
	}
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return errors.Join(domain.ErrConflict, err)
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return errors.Join(domain.ErrNotFound, err)
	}
	return err
}
