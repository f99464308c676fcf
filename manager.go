// Package gtfsgraph builds a transit service graph and reconciles
// feed stops against an inventory of platform zones.
package gtfsgraph

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/downloader"
	"tidbyt.dev/gtfsgraph/storage"
)

const (
	DefaultFeedTimeout  = 60 * time.Second
	DefaultFeedMaxSize  = 800 << 20 // 800 MB
	DefaultFeedCacheTTL = 12 * time.Hour
)

// Manager runs builds against a persistent zone inventory.
type Manager struct {
	FeedTimeout  time.Duration
	FeedMaxSize  int
	FeedCacheTTL time.Duration
	Downloader   downloader.Downloader

	// HTTP headers sent when downloading feeds
	Headers map[string]string

	// Write zones and the stop to zone mapping back to storage after
	// each build.
	WriteBack bool

	builder *Builder
	storage storage.ZoneStorage
}

// Creates a new Manager on top of the given zone storage.
//
// By default, downloaded feeds are cached in memory.
func NewManager(s storage.ZoneStorage, b *Builder) *Manager {
	return &Manager{
		FeedTimeout:  DefaultFeedTimeout,
		FeedMaxSize:  DefaultFeedMaxSize,
		FeedCacheTTL: DefaultFeedCacheTTL,
		Downloader:   downloader.NewMemoryDownloader(b.Logger),

		builder: b,
		storage: s,
	}
}

// Run loads the stored zones and mapping, builds the feed at source (a
// path or an http(s) URL) and optionally writes the reconciled zones
// back.
func (m *Manager) Run(ctx context.Context, source string) (*Result, error) {
	zones, err := m.storage.Zones()
	if err != nil {
		return nil, errors.Wrap(err, "loading zones")
	}

	stopZones, err := m.storage.StopZones()
	if err != nil {
		return nil, errors.Wrap(err, "loading stop zones")
	}

	feed, err := downloader.Fetch(ctx, m.Downloader, source, m.Headers, downloader.GetOptions{
		MaxSize:  m.FeedMaxSize,
		Timeout:  m.FeedTimeout,
		Cache:    m.FeedCacheTTL > 0,
		CacheTTL: m.FeedCacheTTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading feed")
	}

	result, err := m.builder.BuildWithMapping(ctx, feed, zones, stopZones)
	if err != nil {
		return nil, err
	}

	if !m.WriteBack {
		return result, nil
	}

	err = m.storage.WriteZones(result.Zoning.All())
	if err != nil {
		return nil, errors.Wrap(err, "writing zones")
	}

	err = m.storage.WriteMapping(result.Mapping)
	if err != nil {
		return nil, errors.Wrap(err, "writing mapping")
	}

	return result, nil
}

// ReadFeed reads a feed archive from a local path, or downloads it
// through d when source is an http(s) URL.
func ReadFeed(ctx context.Context, source string, d downloader.Downloader) ([]byte, error) {
	return downloader.Fetch(ctx, d, source, nil, downloader.GetOptions{
		MaxSize: DefaultFeedMaxSize,
		Timeout: DefaultFeedTimeout,
	})
}
