package downloader_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tidbyt.dev/gtfsgraph/downloader"
)

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newServer(t *testing.T, body string) *countingServer {
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/auth":
			if r.Header.Get("Authorization") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(body))
		default:
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(cs.Close)
	return cs
}

func TestHTTPGet(t *testing.T) {
	server := newServer(t, "archive bytes")
	ctx := context.Background()

	body, err := downloader.HTTPGet(ctx, server.URL+"/feed.zip", nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(body))

	_, err = downloader.HTTPGet(ctx, server.URL+"/missing", nil, downloader.GetOptions{})
	var statusErr *downloader.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	body, err = downloader.HTTPGet(ctx, server.URL+"/auth", map[string]string{"Authorization": "secret"}, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(body))

	// Exactly at the limit is fine, one byte over is not
	_, err = downloader.HTTPGet(ctx, server.URL+"/feed.zip", nil, downloader.GetOptions{MaxSize: 13})
	require.NoError(t, err)
	_, err = downloader.HTTPGet(ctx, server.URL+"/feed.zip", nil, downloader.GetOptions{MaxSize: 12})
	assert.True(t, errors.Is(err, downloader.ErrTooLarge))
}

func TestMemoryDownloaderCache(t *testing.T) {
	server := newServer(t, "archive")
	ctx := context.Background()

	logs := &bytes.Buffer{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d := downloader.NewMemoryDownloader(zerolog.New(logs))
	d.TimeNow = func() time.Time { return now }

	opts := downloader.GetOptions{Cache: true, CacheTTL: time.Minute}
	for i := 0; i < 3; i++ {
		body, err := d.Get(ctx, server.URL, nil, opts)
		require.NoError(t, err)
		assert.Equal(t, "archive", string(body))
	}
	assert.Equal(t, int32(1), server.hits.Load())
	assert.Equal(t, 2, strings.Count(logs.String(), "cache hit"))

	// A cached archive over a smaller limit is rejected
	_, err := d.Get(ctx, server.URL, nil, downloader.GetOptions{Cache: true, CacheTTL: time.Minute, MaxSize: 3})
	assert.True(t, errors.Is(err, downloader.ErrTooLarge))
	assert.Equal(t, int32(1), server.hits.Load())

	now = now.Add(2 * time.Minute)
	_, err = d.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), server.hits.Load())
	assert.Equal(t, 1, strings.Count(logs.String(), "cache expired"))

	// No caching requested
	_, err = d.Get(ctx, server.URL, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), server.hits.Load())
}

func TestFilesystemCache(t *testing.T) {
	server := newServer(t, "cached archive")
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.json")

	fs, err := downloader.NewFilesystem(path, zerolog.Nop())
	require.NoError(t, err)

	opts := downloader.GetOptions{Cache: true, CacheTTL: time.Hour}
	body, err := fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "cached archive", string(body))
	assert.Equal(t, int32(1), server.hits.Load())

	// A fresh instance picks up the cache file
	fs, err = downloader.NewFilesystem(path, zerolog.Nop())
	require.NoError(t, err)
	body, err = fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, "cached archive", string(body))
	assert.Equal(t, int32(1), server.hits.Load())

	fs.TimeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = fs.Get(ctx, server.URL, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), server.hits.Load())
}

func TestFilesystemCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := downloader.NewFilesystem(path, zerolog.Nop())
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	server := newServer(t, "remote archive")
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, []byte("local archive"), 0644))

	body, err := downloader.Fetch(ctx, nil, path, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "local archive", string(body))

	body, err = downloader.Fetch(ctx, nil, "file://"+path, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "local archive", string(body))

	_, err = downloader.Fetch(ctx, nil, path, nil, downloader.GetOptions{MaxSize: 5})
	assert.True(t, errors.Is(err, downloader.ErrTooLarge))

	_, err = downloader.Fetch(ctx, nil, filepath.Join(t.TempDir(), "nope.zip"), nil, downloader.GetOptions{})
	assert.Error(t, err)

	body, err = downloader.Fetch(ctx, downloader.NewMemoryDownloader(zerolog.Nop()), server.URL, nil, downloader.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "remote archive", string(body))

	_, err = downloader.Fetch(ctx, nil, server.URL, nil, downloader.GetOptions{})
	assert.Error(t, err)
}
