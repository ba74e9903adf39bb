package analysis

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/yasi-python/abtest/pkg/dataset"
	"github.com/yasi-python/abtest/pkg/stats"
)

type FieldSummary struct {
	Field   dataset.Field `json:"field"`
	Summary stats.Summary `json:"summary"`
}

// Describe summarises every field of the rows tagged label, or of all rows
// when label is empty.
func Describe(table *dataset.UnifiedTable, label string) ([]FieldSummary, error) {
	out := make([]FieldSummary, 0, len(table.Fields))
	for _, f := range table.Fields {
		var col []float64
		var err error
		if label == "" {
			col, err = table.All(f)
		} else {
			col, err = table.Column(label, f)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, FieldSummary{Field: f, Summary: stats.Describe(col)})
	}
	return out, nil
}

// Rate is a ratio of column totals within one group, e.g. clicks per impression.
type Rate struct {
	Label       string        `json:"label"`
	Name        string        `json:"name"`
	Numerator   dataset.Field `json:"numerator"`
	Denominator dataset.Field `json:"denominator"`
	Value       float64       `json:"value"`
	Lo          float64       `json:"lo"`
	Hi          float64       `json:"hi"`
}

var rateDefs = []struct {
	name     string
	num, den dataset.Field
}{
	{"click_through", dataset.Click, dataset.Impression},
	{"conversion", dataset.Purchase, dataset.Click},
}

// Rates computes click-through and conversion rates per label with Wilson
// score intervals at confidence 1-alpha. Rates whose fields are missing from
// the table are skipped.
func Rates(table *dataset.UnifiedTable, labels []string, alpha float64) ([]Rate, error) {
	z := stats.TwoSidedZ(alpha)
	var out []Rate
	for _, label := range labels {
		for _, def := range rateDefs {
			num, err := table.Column(label, def.num)
			if errors.Is(err, dataset.ErrUnknownField) {
				continue
			}
			if err != nil {
				return nil, err
			}
			den, err := table.Column(label, def.den)
			if errors.Is(err, dataset.ErrUnknownField) {
				continue
			}
			if err != nil {
				return nil, err
			}
			n, d := floats.Sum(num), floats.Sum(den)
			if d <= 0 {
				continue
			}
			lo, hi := stats.WilsonInterval(n, d, z)
			out = append(out, Rate{Label: label, Name: def.name, Numerator: def.num, Denominator: def.den, Value: n / d, Lo: lo, Hi: hi})
		}
	}
	return out, nil
}
