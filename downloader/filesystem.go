package downloader

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Caches downloaded archives in a JSON file, so that repeated builds
// against the same feed URL skip the network.
type Filesystem struct {
	Path    string
	Records map[string]fsRecord

	TimeNow func() time.Time
	Fetch   func(ctx context.Context, url string, headers map[string]string, options GetOptions) ([]byte, error)

	logger zerolog.Logger
	mutex  sync.Mutex
}

type fsRecord struct {
	Body        string `json:"body"`
	RetrievedAt string `json:"retrieved_at"`
}

func NewFilesystem(path string, logger zerolog.Logger) (*Filesystem, error) {
	fs := &Filesystem{
		Path:    path,
		Records: map[string]fsRecord{},
		TimeNow: time.Now,
		Fetch:   HTTPGet,
		logger:  logger.With().Str("component", "downloader").Logger(),
	}

	err := fs.load()
	if err != nil {
		return nil, err
	}

	return fs, nil
}

func (f *Filesystem) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if options.Cache {
		if record, found := f.Records[url]; found {
			retrievedAt, err := time.Parse(time.RFC3339, record.RetrievedAt)
			if err != nil {
				return nil, errors.Wrap(err, "parsing retrieval time")
			}
			if retrievedAt.Add(options.CacheTTL).After(f.TimeNow()) {
				body, err := base64.StdEncoding.DecodeString(record.Body)
				if err != nil {
					return nil, errors.Wrap(err, "decoding")
				}
				f.logger.Debug().Str("url", url).Msg("cache hit")
				return body, nil
			}
			f.logger.Debug().Str("url", url).Msg("cache expired")
		}
	}

	body, err := f.Fetch(ctx, url, headers, options)
	if err != nil {
		return nil, errors.Wrap(err, "http get")
	}
	f.logger.Info().Str("url", url).Int("bytes", len(body)).Msg("downloaded archive")

	if options.Cache {
		f.Records[url] = fsRecord{
			Body:        base64.StdEncoding.EncodeToString(body),
			RetrievedAt: f.TimeNow().UTC().Format(time.RFC3339),
		}
		err = f.save()
		if err != nil {
			return nil, errors.Wrap(err, "saving")
		}
	}

	return body, nil
}

func (f *Filesystem) load() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	buf, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading")
	}

	err = json.Unmarshal(buf, &f.Records)
	if err != nil {
		return errors.Wrap(err, "unmarshalling")
	}

	return nil
}

func (f *Filesystem) save() error {
	buf, err := json.Marshal(f.Records)
	if err != nil {
		return errors.Wrap(err, "marshalling")
	}

	err = os.WriteFile(f.Path, buf, 0644)
	if err != nil {
		return errors.Wrap(err, "writing")
	}

	return nil
}
