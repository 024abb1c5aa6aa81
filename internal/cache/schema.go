package cache

// SQL schemas for cache tables.
// All cache tables use "cache_key" as the primary key column and store the
// insertion time as unix seconds.

// ProbeCacheTable caches cover URL reachability results.
const ProbeCacheTable = "probe_cache"

// ProbeCacheSchema defines the schema for cover reachability probe results
const ProbeCacheSchema = `
CREATE TABLE IF NOT EXISTS probe_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probe_cached_at ON probe_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	ProbeCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	ProbeCacheTable: true,
}
