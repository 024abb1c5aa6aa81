package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetConfig resets viper and schedules another reset when the test completes.
func ResetConfig(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset; the key stays overridden until the next Reset.
	})
}

// SetupTestCache points the probe cache at a database inside env.
// Returns the database path.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFile("cache/.keep", nil)
	SetViperValue(t, "cache.dbfile", dbPath)
	SetViperValue(t, "covers.probe_ttl", "24h")
	return dbPath
}
