package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/database"
	"go.uber.org/zap"
)

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *database.Database {
	t.Helper()

	dsn := fmt.Sprintf("sqlite://file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(dsn, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewRedis starts a miniredis server and returns a client connected to it.
// The server is returned so tests can fast-forward TTLs or close it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}
