// Package segcache caches synthesized segment audio so identical segments
// across narrations skip the synthesis round-trip. Entries are keyed by a
// digest of voice and text; the text itself is never stored.
package segcache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lumenlabs/scenevoice/internal/config"
	"github.com/lumenlabs/scenevoice/internal/synth"
	_ "modernc.org/sqlite"
)

// Cache wraps a SQLite-backed audio cache. A disabled cache has a nil db and
// every operation is a no-op, so callers never branch on configuration.
type Cache struct {
	db    *sql.DB
	cfg   config.CacheConfig
	log   *slog.Logger
	clock func() time.Time
}

// Key derives the cache key for a voice/text pair.
func Key(voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Open initializes the cache according to config.
func Open(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	c := &Cache{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := c.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("segment cache vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := c.Prune(ctx); err != nil {
		log.Warn("segment cache prune on start failed", slog.String("error", err.Error()))
	}

	return c, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS segments (
    key TEXT PRIMARY KEY,
    pcm BLOB NOT NULL,
    sample_rate INTEGER NOT NULL,
    channels INTEGER NOT NULL,
    bit_depth INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_segments_created ON segments(created_at);
`
	_, err := c.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached clip for key, if present.
func (c *Cache) Get(ctx context.Context, key string) (synth.Clip, bool, error) {
	if c == nil || c.db == nil {
		return synth.Clip{}, false, nil
	}
	row := c.db.QueryRowContext(ctx,
		`SELECT pcm, sample_rate, channels, bit_depth FROM segments WHERE key = ?`, key)
	var clip synth.Clip
	if err := row.Scan(&clip.PCM, &clip.SampleRate, &clip.Channels, &clip.BitDepth); err != nil {
		if err == sql.ErrNoRows {
			return synth.Clip{}, false, nil
		}
		return synth.Clip{}, false, err
	}
	return clip, true, nil
}

// Put stores a clip under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, clip synth.Clip) error {
	if c == nil || c.db == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO segments(key, pcm, sample_rate, channels, bit_depth, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET pcm=excluded.pcm, created_at=excluded.created_at`,
		key, clip.PCM, clip.SampleRate, clip.Channels, clip.BitDepth, c.clock().UTC())
	return err
}

// Prune drops entries beyond the retention window and caps the entry count,
// oldest first.
func (c *Cache) Prune(ctx context.Context) error {
	if c == nil || c.db == nil {
		return nil
	}
	if c.cfg.RetentionDays > 0 {
		cutoff := c.clock().UTC().AddDate(0, 0, -c.cfg.RetentionDays)
		if _, err := c.db.ExecContext(ctx, `DELETE FROM segments WHERE created_at < ?`, cutoff); err != nil {
			return err
		}
	}
	if c.cfg.MaxEntries > 0 {
		_, err := c.db.ExecContext(ctx,
			`DELETE FROM segments WHERE key NOT IN (
			   SELECT key FROM segments ORDER BY created_at DESC LIMIT ?
			 )`, c.cfg.MaxEntries)
		if err != nil {
			return err
		}
	}
	return nil
}
