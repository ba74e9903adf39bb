package dataset

import (
	"github.com/pkg/errors"
)

type TaggedRow struct {
	Label string
	Observation
}

// UnifiedTable is both groups' rows, each tagged with its group label. The
// label is the only discriminator; lookups filter by it, never by position.
type UnifiedTable struct {
	Fields []Field
	Rows   []TaggedRow
}

// Combine concatenates a's rows then b's rows. b's values are re-aligned to
// a's field order when the two groups list the same fields differently.
func Combine(a, b Group) (*UnifiedTable, error) {
	if a.Label == "" || b.Label == "" || a.Label == b.Label {
		return nil, errors.Wrapf(ErrDuplicateLabel, "%q and %q", a.Label, b.Label)
	}
	if !sameFieldSet(a.Fields, b.Fields) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "%s has %v, %s has %v", a.Label, a.Fields, b.Label, b.Fields)
	}
	t := &UnifiedTable{
		Fields: append([]Field(nil), a.Fields...),
		Rows:   make([]TaggedRow, 0, a.Len()+b.Len()),
	}
	for _, o := range a.Rows {
		t.Rows = append(t.Rows, TaggedRow{Label: a.Label, Observation: o})
	}
	perm := make([]int, len(a.Fields))
	for i, f := range a.Fields {
		perm[i] = b.index(f)
	}
	for _, o := range b.Rows {
		vals := make([]float64, len(perm))
		for i, j := range perm {
			vals[i] = o.At(j)
		}
		t.Rows = append(t.Rows, TaggedRow{Label: b.Label, Observation: NewObservation(vals...)})
	}
	return t, nil
}

func (t *UnifiedTable) Len() int { return len(t.Rows) }

// Labels lists the distinct labels in order of first appearance.
func (t *UnifiedTable) Labels() []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range t.Rows {
		if !seen[r.Label] {
			seen[r.Label] = true
			out = append(out, r.Label)
		}
	}
	return out
}

func (t *UnifiedTable) fieldIndex(f Field) (int, error) {
	for i, have := range t.Fields {
		if have == f {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrUnknownField, "%q", f)
}

// Column returns f's values for the rows tagged label, in table order.
func (t *UnifiedTable) Column(label string, f Field) ([]float64, error) {
	i, err := t.fieldIndex(f)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, r := range t.Rows {
		if r.Label == label {
			out = append(out, r.At(i))
		}
	}
	return out, nil
}

// All returns f's values across every row regardless of label.
func (t *UnifiedTable) All(f Field) ([]float64, error) {
	i, err := t.fieldIndex(f)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row.At(i)
	}
	return out, nil
}
