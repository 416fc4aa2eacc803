// Package oracle keeps a local snapshot of the Scryfall oracle cards dataset
// and resolves card names against it.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no eligible record matches a card name
var ErrNotFound = errors.New("card not found")

// DefaultMaxAge is how long a snapshot stays valid
const DefaultMaxAge = 7 * 24 * time.Hour

// CacheConfig locates the snapshot and bounds its age
type CacheConfig struct {
	Path        string
	MaxAge      time.Duration
	DatasetType string
}

// Cache serves card metadata from a time-bounded local snapshot. The
// freshness check happens once, on first use, and blocks lookups until the
// snapshot is loaded.
type Cache struct {
	fetcher *Fetcher
	logger  *logrus.Logger
	cfg     CacheConfig
	now     func() time.Time

	mu              sync.Mutex
	checked         bool
	snapshot        *Dataset
	lastRefreshedAt time.Time
}

func NewCache(fetcher *Fetcher, cfg CacheConfig, logger *logrus.Logger) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.DatasetType == "" {
		cfg.DatasetType = "oracle_cards"
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Resolve returns the metadata of the card called name
func (c *Cache) Resolve(ctx context.Context, name string) (models.CardMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return models.CardMetadata{}, err
	}

	card, ok := c.snapshot.Lookup(name)
	if !ok {
		return models.CardMetadata{}, fmt.Errorf("could not find card %q: %w", name, ErrNotFound)
	}

	return models.CardMetadata{
		Name:     card.Name,
		Printing: strings.ToUpper(card.Set),
		Image:    card.NormalImage(),
	}, nil
}

// Refresh loads the snapshot, downloading a new one when the local copy is
// stale or force is set. It reports whether a download happened.
func (c *Cache) Refresh(ctx context.Context, force bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	downloaded, err := c.refreshLocked(ctx, force)
	if err != nil {
		return false, err
	}
	c.checked = true
	return downloaded, nil
}

// LastRefreshedAt is the modification time of the loaded snapshot
func (c *Cache) LastRefreshedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshedAt
}

// Len returns the number of records available for lookups, loading the
// snapshot if needed.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return 0, err
	}
	return c.snapshot.Len(), nil
}

func (c *Cache) ensureLocked(ctx context.Context) error {
	if c.checked {
		return nil
	}
	if _, err := c.refreshLocked(ctx, false); err != nil {
		return err
	}
	c.checked = true
	return nil
}

func (c *Cache) refreshLocked(ctx context.Context, force bool) (bool, error) {
	modTime, fresh, err := c.freshness()
	if err != nil {
		return false, err
	}

	downloaded := false
	if force || !fresh {
		c.logger.Infof("Refreshing oracle data into %s", c.cfg.Path)

		datasets, err := c.fetcher.FetchBulkIndex(ctx)
		if err != nil {
			return false, err
		}
		dataset, err := FindDataset(datasets, c.cfg.DatasetType)
		if err != nil {
			return false, err
		}
		if err := c.fetcher.Download(ctx, dataset.DownloadURI, c.cfg.Path); err != nil {
			return false, err
		}
		downloaded = true
		modTime = c.now()
		if err := os.Chtimes(c.cfg.Path, modTime, modTime); err != nil {
			return false, fmt.Errorf("failed to stamp snapshot: %w", err)
		}
	} else if c.snapshot != nil {
		return false, nil
	}

	snapshot, err := LoadDataset(c.cfg.Path)
	if err != nil {
		return false, err
	}

	c.snapshot = snapshot
	c.lastRefreshedAt = modTime
	c.logger.Infof("Loaded %d oracle cards (refreshed %s)", snapshot.Len(), modTime.Format(time.RFC3339))
	return downloaded, nil
}

// freshness reports the snapshot modification time and whether it is younger
// than the configured max age. A missing snapshot is never fresh.
func (c *Cache) freshness() (time.Time, bool, error) {
	info, err := os.Stat(c.cfg.Path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	age := c.now().Sub(info.ModTime())
	return info.ModTime(), age < c.cfg.MaxAge, nil
}
