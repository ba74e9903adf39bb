package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/yasi-python/abtest/internal/source"
)

// ReadCSV parses a header row plus one row per observation. A leading column
// with an empty header (a spreadsheet index) is skipped.
func ReadCSV(r io.Reader, label string) (Group, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return Group{}, errors.Wrapf(ErrBadValue, "%s: empty csv", label)
	}
	if err != nil {
		return Group{}, errors.Wrapf(err, "%s: read header", label)
	}
	skip := 0
	if len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		skip = 1
	}
	fields := make([]Field, 0, len(header)-skip)
	for _, h := range header[skip:] {
		fields = append(fields, CanonicalField(h))
	}

	var rows [][]float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Group{}, errors.Wrapf(err, "%s: line %d", label, line)
		}
		row := make([]float64, 0, len(fields))
		for i, cell := range rec[skip:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return Group{}, errors.Wrapf(ErrBadValue, "%s: line %d column %q: %q", label, line, fields[i], cell)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return NewGroup(label, fields, rows)
}

type Loader struct {
	Opener source.Opener
}

func NewLoader() Loader { return Loader{Opener: source.Auto{}} }

func (l Loader) Load(ctx context.Context, location, label string) (Group, error) {
	rc, err := l.Opener.Open(ctx, location)
	if err != nil {
		return Group{}, errors.Wrapf(err, "open %s dataset", label)
	}
	defer rc.Close()
	g, err := ReadCSV(rc, label)
	if err != nil {
		return Group{}, err
	}
	if err := g.ValidateCounts(); err != nil {
		return Group{}, err
	}
	return g, nil
}
