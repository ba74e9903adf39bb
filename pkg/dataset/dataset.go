// Package dataset holds the trial records of the two bidding groups and the
// unified, label-tagged table the analysis reads from.
package dataset

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type Field string

const (
	Impression Field = "Impression"
	Click      Field = "Click"
	Purchase   Field = "Purchase"
	Earning    Field = "Earning"
)

var DefaultFields = []Field{Impression, Click, Purchase, Earning}

var (
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrDuplicateLabel = errors.New("group labels must be distinct and non-empty")
	ErrUnknownField   = errors.New("unknown field")
	ErrBadValue       = errors.New("bad value")
)

// CanonicalField maps a column name onto one of DefaultFields, ignoring case
// and surrounding space. Names that match none are returned trimmed.
func CanonicalField(name string) Field {
	n := strings.TrimSpace(name)
	for _, f := range DefaultFields {
		if strings.EqualFold(n, string(f)) {
			return f
		}
	}
	return Field(n)
}

// Observation is one trial. Values are aligned with the owning Group's Fields
// and are never modified after construction.
type Observation struct {
	values []float64
}

func NewObservation(values ...float64) Observation {
	return Observation{values: append([]float64(nil), values...)}
}

func (o Observation) At(i int) float64 { return o.values[i] }

func (o Observation) Len() int { return len(o.values) }

func (o Observation) Values() []float64 { return append([]float64(nil), o.values...) }

type Group struct {
	Label  string
	Fields []Field
	Rows   []Observation
}

// NewGroup builds a Group, checking that every row has one finite value per field.
func NewGroup(label string, fields []Field, rows [][]float64) (Group, error) {
	seen := map[Field]bool{}
	for _, f := range fields {
		if f == "" {
			return Group{}, errors.Wrap(ErrUnknownField, "empty field name")
		}
		if seen[f] {
			return Group{}, errors.Wrapf(ErrSchemaMismatch, "field %q repeated", f)
		}
		seen[f] = true
	}
	g := Group{Label: label, Fields: append([]Field(nil), fields...), Rows: make([]Observation, 0, len(rows))}
	for i, r := range rows {
		if len(r) != len(fields) {
			return Group{}, errors.Wrapf(ErrSchemaMismatch, "%s row %d has %d values, want %d", label, i, len(r), len(fields))
		}
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Group{}, errors.Wrapf(ErrBadValue, "%s row %d %s: %v", label, i, fields[j], v)
			}
		}
		g.Rows = append(g.Rows, NewObservation(r...))
	}
	return g, nil
}

// GroupFromRecords builds a Group from name-keyed records. Every record must
// carry the same set of names. Known fields come first in DefaultFields
// order, the rest sorted by name.
func GroupFromRecords(label string, records []map[string]float64) (Group, error) {
	if len(records) == 0 {
		return Group{Label: label}, nil
	}
	byField := map[Field]string{}
	for name := range records[0] {
		byField[CanonicalField(name)] = name
	}
	var fields, extra []Field
	for _, f := range DefaultFields {
		if _, ok := byField[f]; ok {
			fields = append(fields, f)
		}
	}
	for f := range byField {
		if !isDefault(f) {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	fields = append(fields, extra...)

	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		if len(rec) != len(fields) {
			return Group{}, errors.Wrapf(ErrSchemaMismatch, "%s record %d has %d fields, want %d", label, i, len(rec), len(fields))
		}
		row := make([]float64, len(fields))
		for j, f := range fields {
			v, ok := rec[byField[f]]
			if !ok {
				return Group{}, errors.Wrapf(ErrSchemaMismatch, "%s record %d lacks %q", label, i, f)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return NewGroup(label, fields, rows)
}

func isDefault(f Field) bool {
	for _, d := range DefaultFields {
		if f == d {
			return true
		}
	}
	return false
}

func (g Group) Len() int { return len(g.Rows) }

func (g Group) index(f Field) int {
	for i, have := range g.Fields {
		if have == f {
			return i
		}
	}
	return -1
}

func (g Group) HasField(f Field) bool { return g.index(f) >= 0 }

// Column returns the values of f in row order.
func (g Group) Column(f Field) ([]float64, error) {
	i := g.index(f)
	if i < 0 {
		return nil, errors.Wrapf(ErrUnknownField, "%q in group %q", f, g.Label)
	}
	out := make([]float64, len(g.Rows))
	for r, o := range g.Rows {
		out[r] = o.At(i)
	}
	return out, nil
}

// ValidateCounts checks that every value is non-negative: counts and
// earnings cannot go below zero. Click <= Impression is not enforced.
func (g Group) ValidateCounts() error {
	for r, o := range g.Rows {
		for i := 0; i < o.Len(); i++ {
			if o.At(i) < 0 {
				return errors.Wrapf(ErrBadValue, "%s row %d %s is negative: %v", g.Label, r, g.Fields[i], o.At(i))
			}
		}
	}
	return nil
}

func sameFieldSet(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	in := make(map[Field]bool, len(a))
	for _, f := range a {
		in[f] = true
	}
	for _, f := range b {
		if !in[f] {
			return false
		}
	}
	return true
}
