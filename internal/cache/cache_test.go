package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lepinkainen/ebookgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func setupTestCache(t *testing.T) *CacheDB {
	t.Helper()

	env := testutil.NewTestEnv(t)
	db, err := Open(filepath.Join(env.RootDir(), "test_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setClock(c *CacheDB, at time.Time) {
	c.now = func() time.Time { return at }
}

func TestCacheDB_GetSet(t *testing.T) {
	db := setupTestCache(t)

	require.NoError(t, db.Set(ProbeCacheTable, "k", `{"id":1}`))

	data, ok, err := db.Get(ProbeCacheTable, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, data)

	_, ok, err = db.Get(ProbeCacheTable, "missing", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheDB_GetExpired(t *testing.T) {
	db := setupTestCache(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	setClock(db, base)
	require.NoError(t, db.Set(ProbeCacheTable, "k", "v"))

	setClock(db, base.Add(2*time.Hour))
	_, ok, err := db.Get(ProbeCacheTable, "k", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "entry older than ttl must not be returned")
	assert.True(t, db.exists(ProbeCacheTable, "k"), "expired entry stays until pruned")
}

func TestCacheDB_InvalidTable(t *testing.T) {
	db := setupTestCache(t)

	_, _, err := db.Get("users; DROP TABLE x", "k", time.Hour)
	assert.Error(t, err)
	assert.Error(t, db.Set("nope", "k", "v"))
	_, err = db.ClearAll("nope")
	assert.Error(t, err)
	assert.False(t, db.exists("nope", "k"))
}

func TestCacheDB_ClearExpired(t *testing.T) {
	db := setupTestCache(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	setClock(db, base)
	require.NoError(t, db.Set(ProbeCacheTable, "old", "v"))
	setClock(db, base.Add(3*time.Hour))
	require.NoError(t, db.Set(ProbeCacheTable, "new", "v"))

	deleted, err := db.ClearExpired(ProbeCacheTable, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.False(t, db.exists(ProbeCacheTable, "old"))
	assert.True(t, db.exists(ProbeCacheTable, "new"))
}

func TestCacheDB_ClearAll(t *testing.T) {
	db := setupTestCache(t)

	require.NoError(t, db.Set(ProbeCacheTable, "a", "1"))
	require.NoError(t, db.Set(ProbeCacheTable, "b", "2"))

	deleted, err := db.ClearAll(ProbeCacheTable)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.False(t, db.exists(ProbeCacheTable, "a"))
}

func TestGetOrFetch_MissThenHit(t *testing.T) {
	db := setupTestCache(t)

	calls := 0
	fetch := func() (testData, error) {
		calls++
		return testData{ID: 2, Name: "Fetched"}, nil
	}

	result, fromCache, err := GetOrFetchWithPolicy(db, ProbeCacheTable, "key", time.Hour, fetch, nil)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, testData{ID: 2, Name: "Fetched"}, result)

	result, fromCache, err = GetOrFetchWithPolicy(db, ProbeCacheTable, "key", time.Hour, fetch, nil)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "Fetched", result.Name)
}

func TestGetOrFetch_FetchError(t *testing.T) {
	db := setupTestCache(t)
	boom := errors.New("boom")

	_, _, err := GetOrFetchWithPolicy(db, ProbeCacheTable, "key", time.Hour, func() (testData, error) {
		return testData{}, boom
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, db.exists(ProbeCacheTable, "key"))
}

func TestGetOrFetch_NilDBFetchesDirectly(t *testing.T) {
	calls := 0
	for i := 0; i < 2; i++ {
		_, fromCache, err := GetOrFetchWithPolicy[testData](nil, ProbeCacheTable, "key", time.Hour, func() (testData, error) {
			calls++
			return testData{ID: 1}, nil
		}, nil)
		require.NoError(t, err)
		assert.False(t, fromCache)
	}
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchWithPolicy_SkipCaching(t *testing.T) {
	db := setupTestCache(t)

	onlyNamed := func(d testData) bool { return d.Name != "" }

	_, _, err := GetOrFetchWithPolicy(db, ProbeCacheTable, "anon", time.Hour, func() (testData, error) {
		return testData{ID: 1}, nil
	}, onlyNamed)
	require.NoError(t, err)
	assert.False(t, db.exists(ProbeCacheTable, "anon"))

	_, _, err = GetOrFetchWithPolicy(db, ProbeCacheTable, "named", time.Hour, func() (testData, error) {
		return testData{ID: 2, Name: "x"}, nil
	}, onlyNamed)
	require.NoError(t, err)
	assert.True(t, db.exists(ProbeCacheTable, "named"))
}

func TestGetOrFetch_CorruptEntryRefetches(t *testing.T) {
	db := setupTestCache(t)
	require.NoError(t, db.Set(ProbeCacheTable, "key", "not json"))

	result, fromCache, err := GetOrFetchWithPolicy(db, ProbeCacheTable, "key", time.Hour, func() (testData, error) {
		return testData{ID: 9}, nil
	}, nil)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 9, result.ID)
}
