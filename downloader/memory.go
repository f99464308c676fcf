package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Keeps downloaded feed archives in memory, keyed by URL. Repeated
// builds of one feed within the TTL reuse the archive.
type MemoryDownloader struct {
	TimeNow func() time.Time
	Fetch   func(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)

	logger zerolog.Logger
	mutex  sync.Mutex
	feeds  map[string]cachedFeed
}

type cachedFeed struct {
	archive   []byte
	fetchedAt time.Time
}

func NewMemoryDownloader(logger zerolog.Logger) *MemoryDownloader {
	return &MemoryDownloader{
		TimeNow: time.Now,
		Fetch:   HTTPGet,
		logger:  logger.With().Str("component", "downloader").Logger(),
		feeds:   map[string]cachedFeed{},
	}
}

func (d *MemoryDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if !options.Cache {
		return d.Fetch(ctx, url, headers, options)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if feed, found := d.feeds[url]; found {
		age := d.TimeNow().Sub(feed.fetchedAt)
		switch {
		case age >= options.CacheTTL:
			d.logger.Debug().Str("url", url).Dur("age", age).Msg("cache expired")
		case options.MaxSize > 0 && len(feed.archive) > options.MaxSize:
			// Cached under a larger limit
			return nil, errors.Wrapf(ErrTooLarge, "more than %d bytes", options.MaxSize)
		default:
			d.logger.Debug().Str("url", url).Int("bytes", len(feed.archive)).Msg("cache hit")
			return feed.archive, nil
		}
	}

	archive, err := d.Fetch(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	d.feeds[url] = cachedFeed{
		archive:   archive,
		fetchedAt: d.TimeNow(),
	}

	return archive, nil
}
