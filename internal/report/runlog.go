package report

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/rshade/commutesim/internal/engine"
)

// RunLogHeader is the header row of the run log.
//
//nolint:gochecknoglobals // Fixed column layout.
var RunLogHeader = []string{
	"run", "seed", "individuals", "total_distance_km",
	"commute_kg", "wfh_kg", "heating_kg", "total_kg",
}

// WriteRunLog writes one CSV row per run, in run order.
func WriteRunLog(w io.Writer, res *engine.AggregateResult) error {
	if res == nil {
		return errors.New("no result to export")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(RunLogHeader); err != nil {
		return err
	}
	for _, r := range res.RunResults {
		if err := cw.Write([]string{
			strconv.Itoa(r.Run),
			strconv.FormatUint(r.Seed, 10),
			strconv.Itoa(r.Individuals),
			formatCSVFloat(r.DistanceKm),
			formatCSVFloat(r.Commute),
			formatCSVFloat(r.WFH),
			formatCSVFloat(r.Heating),
			formatCSVFloat(r.Total),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCSVFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
