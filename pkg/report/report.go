// Package report renders analysis results for terminals and machine consumers.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/stats"
)

func f4(v float64) string { return fmt.Sprintf("%.4f", v) }

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

// WriteText prints the group means, one row per decision step and the
// conclusion.
func WriteText(w io.Writer, r *analysis.Report) error {
	if r == nil || len(r.Steps) == 0 {
		return errors.New("empty report")
	}
	if _, err := fmt.Fprintf(w, "Metric: %s  alpha: %g\n", r.Metric, r.Alpha); err != nil {
		return err
	}

	means := newTable(w, "group", "n", "mean", "std")
	for _, g := range []analysis.GroupSummary{r.Control, r.Test} {
		means.Append([]string{g.Label, fmt.Sprint(g.Summary.Count), f4(g.Summary.Mean), f4(g.Summary.Std)})
	}
	means.Render()

	steps := newTable(w, "check", "group", "test", "statistic", "p-value", "outcome")
	for _, s := range r.Steps {
		steps.Append([]string{string(s.Check), s.Group, s.Test, f4(s.Result.Statistic), f4(s.Result.PValue), string(s.Decision.Outcome)})
	}
	steps.Render()

	var b strings.Builder
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "- %s\n", s.Verdict)
	}
	fmt.Fprintf(&b, "Selected test: %s (%s)\n", r.Selection.Kind.Title(), r.Selection.Reason)
	fmt.Fprintln(&b, r.Conclusion)
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteSummary prints one line per report, for multi-metric runs.
func WriteSummary(w io.Writer, rs []*analysis.Report) {
	t := newTable(w, "metric", "test", "statistic", "p-value", "significant")
	for _, r := range rs {
		c := r.Comparison()
		t.Append([]string{string(r.Metric), string(r.Selection.Kind), f4(c.Result.Statistic), f4(c.Result.PValue), fmt.Sprint(r.Significant)})
	}
	t.Render()
}

// WriteDescribe prints count, mean, std, min, quartiles and max per field.
func WriteDescribe(w io.Writer, title string, fs []analysis.FieldSummary) {
	if title != "" {
		fmt.Fprintln(w, title)
	}
	t := newTable(w, "field", "count", "mean", "std", "min", "25%", "50%", "75%", "max")
	for _, f := range fs {
		t.Append(describeRow(string(f.Field), f.Summary))
	}
	t.Render()
}

func describeRow(name string, s stats.Summary) []string {
	return []string{name, fmt.Sprint(s.Count), f4(s.Mean), f4(s.Std), f4(s.Min), f4(s.Q25), f4(s.Q50), f4(s.Q75), f4(s.Max)}
}

func WriteRates(w io.Writer, rates []analysis.Rate) {
	t := newTable(w, "group", "rate", "value", "lo", "hi")
	for _, r := range rates {
		t.Append([]string{r.Label, r.Name, f4(r.Value), f4(r.Lo), f4(r.Hi)})
	}
	t.Render()
}

// WriteJSON encodes v indented. NaN is not representable in JSON, so
// callers only pass completed reports.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode report")
}
