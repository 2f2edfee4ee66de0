package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/migrations"
)

func openTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()
	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "test.sqlite"), gormsqlite.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	wdb, err := db.WriteSQLDB()
	require.NoError(t, err)
	require.NoError(t, migrations.Up(context.Background(), wdb))
	return db
}
