package parse

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"tidbyt.dev/gtfsgraph/model"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
}

// Returns the set of agency ids decoded.
func (d *Decoder) decodeAgency(handler FeedHandler, data io.Reader, summary *FeedSummary) (map[string]bool, error) {
	agencyCsv := []*AgencyCSV{}
	if err := gocsv.Unmarshal(data, &agencyCsv); err != nil {
		return nil, errors.Wrap(err, "unmarshaling agency csv")
	}

	if len(agencyCsv) == 0 {
		return nil, errors.New("no agency record found")
	}

	// "If multiple agencies are specified in the dataset, each
	// must have the same agency_timezone." Only the first is kept.
	tz := agencyCsv[0].Timezone
	if tz == "" {
		d.logger.Warn().Msg("missing agency_timezone")
	} else if _, err := time.LoadLocation(tz); err != nil {
		d.logger.Warn().Err(err).Str("timezone", tz).Msg("invalid agency_timezone")
	}
	summary.Timezone = tz

	agency := map[string]bool{}
	for i, a := range agencyCsv {
		row := i + 1

		if agency[a.ID] {
			d.reject("agency.txt", row, summary, fmt.Sprintf("duplicated agency_id '%s'", a.ID))
			continue
		}
		if a.Name == "" {
			d.reject("agency.txt", row, summary, "missing agency_name")
			continue
		}
		if a.Timezone != tz {
			d.logger.Warn().Int("row", row).Str("timezone", a.Timezone).Msg("agency_timezone differs from first agency")
		}
		agency[a.ID] = true

		err := d.dispatch("agency.txt", row, summary, func() error {
			return handler.HandleAgency(&model.Agency{
				ID:       a.ID,
				Name:     a.Name,
				URL:      a.URL,
				Timezone: tz,
			})
		})
		if err != nil {
			return nil, err
		}
	}

	return agency, nil
}
