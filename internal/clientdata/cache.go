// Package clientdata provides a persistent TTL cache for derived figures in
// cache.db. Entries are msgpack-encoded; the database is disposable and runs
// with synchronous=OFF, so a crash at worst loses cache entries that will be
// recomputed on the next read.
package clientdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Default TTLs for cached figure families.
const (
	ReturnsTTL = 15 * time.Minute
)

// Cache stores msgpack blobs keyed by string in cache.db.
type Cache struct {
	cacheDB *sql.DB
	log     zerolog.Logger
}

// NewCache creates a new cache over cache.db.
func NewCache(cacheDB *sql.DB, log zerolog.Logger) *Cache {
	return &Cache{
		cacheDB: cacheDB,
		log:     log.With().Str("component", "clientdata").Logger(),
	}
}

// Set stores a value under key with the given TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.cacheDB.Exec(
		"INSERT OR REPLACE INTO returns_cache (cache_key, data, expires_at) VALUES (?, ?, ?)",
		key, data, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get loads the value under key into dest. Returns false when the key is
// missing or expired.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	var data []byte
	err := c.cacheDB.QueryRow(
		"SELECT data FROM returns_cache WHERE cache_key = ? AND expires_at > ?",
		key, time.Now().Unix(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load cache entry: %w", err)
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		// A decode failure means the schema of the cached type changed.
		// Treat as a miss and let the caller overwrite it.
		c.log.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		_, _ = c.cacheDB.Exec("DELETE FROM returns_cache WHERE cache_key = ?", key)
		return false, nil
	}
	return true, nil
}

// DeletePrefix removes every entry whose key starts with the given prefix.
func (c *Cache) DeletePrefix(prefix string) error {
	_, err := c.cacheDB.Exec(
		"DELETE FROM returns_cache WHERE cache_key LIKE ?",
		prefix+"%",
	)
	if err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return nil
}

// CleanupExpired removes entries past their TTL. Run periodically by the
// scheduler.
func (c *Cache) CleanupExpired() (int64, error) {
	result, err := c.cacheDB.Exec(
		"DELETE FROM returns_cache WHERE expires_at <= ?",
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired cache entries: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}
