package marketdata

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// cachedHistory is the msgpack payload stored per fetch batch.
type cachedHistory struct {
	Symbols []string    `msgpack:"symbols"`
	Dates   []time.Time `msgpack:"dates"`
	Closes  [][]float64 `msgpack:"closes"`
}

// CachedProvider wraps a Provider with a sqlite-backed cache so repeated
// optimizations and backtests over the same windows do not refetch.
type CachedProvider struct {
	inner Provider
	db    *sql.DB
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider creates the cache layer and ensures its schema exists.
func NewCachedProvider(inner Provider, db *sql.DB, ttl time.Duration, log zerolog.Logger) (*CachedProvider, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS price_batches (
			batch_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create price cache schema: %w", err)
	}

	return &CachedProvider{
		inner: inner,
		db:    db,
		ttl:   ttl,
		log:   log.With().Str("component", "price_cache").Logger(),
	}, nil
}

// Fetch returns cached history when a fresh batch exists, delegating to the
// inner provider otherwise. Cache failures degrade to a direct fetch; they
// never fail the request.
func (c *CachedProvider) Fetch(ctx context.Context, symbols []string, start, end time.Time) (*PriceHistory, error) {
	key := batchKey(symbols, start, end)

	if history, ok := c.lookup(key); ok {
		// The key is order-insensitive, so the stored batch may carry another
		// request's column order. Callers index columns by their own symbol
		// order; realign before returning.
		if aligned, ok := alignColumns(history, symbols); ok {
			c.log.Debug().Str("key", key[:8]).Msg("Price cache hit")
			return aligned, nil
		}
		c.log.Warn().Str("key", key[:8]).Msg("Cached price batch does not cover the requested symbols, refetching")
	}

	history, err := c.inner.Fetch(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}

	if !history.Empty() {
		c.store(key, history)
	}
	return history, nil
}

// lookup reads and decodes a non-expired batch.
func (c *CachedProvider) lookup(key string) (*PriceHistory, bool) {
	var payload []byte
	var fetchedAt time.Time
	err := c.db.QueryRow(
		`SELECT payload, fetched_at FROM price_batches WHERE batch_key = ?`, key,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Warn().Err(err).Msg("Price cache lookup failed")
		}
		return nil, false
	}
	if time.Since(fetchedAt) > c.ttl {
		return nil, false
	}

	var cached cachedHistory
	if err := msgpack.Unmarshal(payload, &cached); err != nil {
		c.log.Warn().Err(err).Msg("Failed to decode cached price batch, refetching")
		return nil, false
	}
	return &PriceHistory{
		Symbols: cached.Symbols,
		Dates:   cached.Dates,
		Closes:  cached.Closes,
	}, true
}

// store encodes and upserts a batch.
func (c *CachedProvider) store(key string, history *PriceHistory) {
	payload, err := msgpack.Marshal(cachedHistory{
		Symbols: history.Symbols,
		Dates:   history.Dates,
		Closes:  history.Closes,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode price batch for cache")
		return
	}
	_, err = c.db.Exec(
		`INSERT INTO price_batches (batch_key, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(batch_key) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		key, payload, time.Now().UTC(),
	)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to store price batch in cache")
	}
}

// Prune deletes batches fetched before the cutoff. Wired to the nightly cron
// job so the cache cannot grow without bound.
func (c *CachedProvider) Prune(olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := c.db.Exec(`DELETE FROM price_batches WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune price cache: %w", err)
	}
	if deleted, err := result.RowsAffected(); err == nil && deleted > 0 {
		c.log.Info().Int64("deleted", deleted).Msg("Pruned stale price batches")
	}
	return nil
}

// alignColumns permutes the close columns of a stored batch into the
// requested symbol order. Reports false when the batch does not cover every
// requested symbol.
func alignColumns(history *PriceHistory, symbols []string) (*PriceHistory, bool) {
	index := make(map[string]int, len(history.Symbols))
	for i, symbol := range history.Symbols {
		index[symbol] = i
	}
	perm := make([]int, len(symbols))
	for i, symbol := range symbols {
		col, ok := index[symbol]
		if !ok {
			return nil, false
		}
		perm[i] = col
	}

	aligned := &PriceHistory{
		Symbols: append([]string(nil), symbols...),
		Dates:   history.Dates,
		Closes:  make([][]float64, len(history.Closes)),
	}
	for t, row := range history.Closes {
		out := make([]float64, len(perm))
		for i, col := range perm {
			out[i] = row[col]
		}
		aligned.Closes[t] = out
	}
	return aligned, true
}

// batchKey builds a deterministic cache key from the sorted symbol set and
// the window bounds.
func batchKey(symbols []string, start, end time.Time) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	keyData := fmt.Sprintf("%s|%s|%s",
		strings.Join(sorted, ","),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
	h := sha256.Sum256([]byte(keyData))
	return hex.EncodeToString(h[:16])
}
