// Package downloader fetches feed archives over HTTP or from local
// disk, optionally caching remote archives.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrTooLarge = errors.New("archive exceeds size limit")

type GetOptions struct {
	// Archives larger than MaxSize bytes are rejected. Zero means no
	// limit.
	MaxSize  int
	Timeout  time.Duration
	Cache    bool
	CacheTTL time.Duration
}

// A thing capable of downloading a file, optionally with caching
type Downloader interface {
	Get(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return "GET " + e.URL + ": " + http.StatusText(e.Code)
}

// Gets a file. Doesn't cache. Provided as convenience for
// implementing custom Downloaders.
func HTTPGet(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error) {
	client := &http.Client{
		Timeout: options.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "making request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	return readLimited(resp.Body, options.MaxSize)
}

func readLimited(r io.Reader, maxSize int) ([]byte, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, int64(maxSize)+1)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}

	if maxSize > 0 && len(body) > maxSize {
		return nil, errors.Wrapf(ErrTooLarge, "more than %d bytes", maxSize)
	}

	return body, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch loads a feed archive from source, which is either an http(s)
// URL retrieved through d or a path on local disk. headers only apply
// to URLs.
func Fetch(
	ctx context.Context,
	d Downloader,
	source string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if isRemote(source) {
		if d == nil {
			return nil, errors.Errorf("no downloader for '%s'", source)
		}
		return d.Get(ctx, source, headers, options)
	}

	f, err := os.Open(strings.TrimPrefix(source, "file://"))
	if err != nil {
		return nil, errors.Wrap(err, "opening archive")
	}
	defer f.Close()

	return readLimited(f, options.MaxSize)
}
