// Package parse decodes GTFS static feeds into typed rows.
package parse

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spkg/bom"

	"tidbyt.dev/gtfsgraph/model"
)

// A handler returning an error wrapping ErrAbort stops decoding. Any
// other handler error only skips the row.
var ErrAbort = errors.New("decoding aborted")

// FeedHandler receives decoded rows, file by file, in the order
// agency, routes, trips, stops, stop_times.
type FeedHandler interface {
	HandleAgency(agency *model.Agency) error
	HandleRoute(route *model.Route) error
	HandleTrip(trip *model.Trip) error
	HandleStop(stop *model.Stop) error
	HandleStopTime(stopTime *model.StopTime) error
}

// Per file row counts of a decoded feed.
type FeedSummary struct {
	Timezone string
	Rows     map[string]int
	Skipped  map[string]int
}

func (s *FeedSummary) row(file string) {
	s.Rows[file]++
}

func (s *FeedSummary) skip(file string) {
	s.Skipped[file]++
}

var requiredFiles = []string{
	"agency.txt",
	"routes.txt",
	"trips.txt",
	"stops.txt",
	"stop_times.txt",
}

type Decoder struct {
	logger zerolog.Logger

	// SortStopTimes buffers stop_times.txt and sorts it by trip
	// and stop_sequence before handing rows out. Needed for feeds
	// that don't keep each trip's rows together.
	SortStopTimes bool
}

func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{
		logger: logger.With().Str("component", "decoder").Logger(),
	}
}

// Decode reads a zipped feed and feeds its rows to handler. Rows
// failing validation are logged and skipped. Unreadable archives,
// missing files and broken CSV are fatal.
func (d *Decoder) Decode(handler FeedHandler, buf []byte) (*FeedSummary, error) {
	file := map[string]io.ReadCloser{}
	for _, name := range requiredFiles {
		file[name] = nil
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, errors.Wrap(err, "unzipping")
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if rc, found := file[fName]; !found || rc != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", f.Name)
		}

		file[fName] = rc
	}

	for _, required := range requiredFiles {
		if file[required] == nil {
			return nil, errors.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	summary := &FeedSummary{
		Rows:    map[string]int{},
		Skipped: map[string]int{},
	}

	agency, err := d.decodeAgency(handler, file["agency.txt"], summary)
	if err != nil {
		return nil, errors.Wrap(err, "parsing agency.txt")
	}

	routes, err := d.decodeRoutes(handler, file["routes.txt"], agency, summary)
	if err != nil {
		return nil, errors.Wrap(err, "parsing routes.txt")
	}

	err = d.decodeTrips(handler, file["trips.txt"], routes, summary)
	if err != nil {
		return nil, errors.Wrap(err, "parsing trips.txt")
	}

	stops, err := d.decodeStops(handler, file["stops.txt"], summary)
	if err != nil {
		return nil, errors.Wrap(err, "parsing stops.txt")
	}

	err = d.decodeStopTimes(handler, file["stop_times.txt"], stops, summary)
	if err != nil {
		return nil, errors.Wrap(err, "parsing stop_times.txt")
	}

	d.logger.Info().
		Interface("rows", summary.Rows).
		Interface("skipped", summary.Skipped).
		Msg("decoded feed")

	return summary, nil
}

// Hands a row to the handler. Only ErrAbort is returned; other errors
// count the row as skipped.
func (d *Decoder) dispatch(file string, row int, summary *FeedSummary, handle func() error) error {
	err := handle()
	if err == nil {
		summary.row(file)
		return nil
	}
	if errors.Is(err, ErrAbort) {
		return errors.Wrapf(err, "row %d", row)
	}
	d.logger.Debug().Err(err).Str("file", file).Int("row", row).Msg("row rejected by handler")
	summary.skip(file)
	return nil
}

// Logs and counts a row failing validation.
func (d *Decoder) reject(file string, row int, summary *FeedSummary, reason string) {
	d.logger.Warn().Str("file", file).Int("row", row).Msg(reason + ", skipping row")
	summary.skip(file)
}
