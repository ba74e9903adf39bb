// Package analysis runs the fixed decision path of the bidding experiment:
// per-group normality, variance homogeneity, test selection, mean
// comparison and the significance decision, keeping every intermediate
// result.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/yasi-python/abtest/pkg/config"
	"github.com/yasi-python/abtest/pkg/dataset"
	"github.com/yasi-python/abtest/pkg/decision"
	"github.com/yasi-python/abtest/pkg/logger"
	"github.com/yasi-python/abtest/pkg/metrics"
	"github.com/yasi-python/abtest/pkg/stats"
)

var ErrInvalidConfig = errors.New("invalid analysis config")

type Config struct {
	Metric       dataset.Field `json:"metric"`
	Alpha        float64       `json:"alpha"`
	ControlLabel string        `json:"control_label"`
	TestLabel    string        `json:"test_label"`
}

func DefaultConfig() Config {
	return Config{Metric: dataset.Purchase, Alpha: decision.DefaultAlpha, ControlLabel: "control", TestLabel: "test"}
}

func ConfigFrom(c config.AnalysisCfg) Config {
	return Config{
		Metric:       dataset.CanonicalField(c.Metric),
		Alpha:        c.Alpha,
		ControlLabel: c.ControlLabel,
		TestLabel:    c.TestLabel,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Alpha > 0 && c.Alpha < 1):
		return errors.Wrapf(ErrInvalidConfig, "alpha %v outside (0, 1)", c.Alpha)
	case c.Metric == "":
		return errors.Wrap(ErrInvalidConfig, "empty metric")
	case c.ControlLabel == "" || c.TestLabel == "" || c.ControlLabel == c.TestLabel:
		return errors.Wrapf(ErrInvalidConfig, "labels %q and %q must be distinct and non-empty", c.ControlLabel, c.TestLabel)
	}
	return nil
}

type Stage string

const (
	StageExtract    Stage = "extract"
	StageNormality  Stage = "normality"
	StageVariance   Stage = "variance"
	StageComparison Stage = "comparison"
)

// StageError reports the stage (and group, for per-group checks) at which
// the pipeline halted.
type StageError struct {
	Stage Stage
	Group string
	Err   error
}

func (e *StageError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("%s (%s): %v", e.Stage, e.Group, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Step struct {
	Check      decision.Check      `json:"check"`
	Group      string              `json:"group,omitempty"`
	Test       string              `json:"test"`
	Hypothesis decision.Hypothesis `json:"hypothesis"`
	Result     stats.TestResult    `json:"result"`
	Decision   decision.Decision   `json:"decision"`
	Verdict    string              `json:"verdict"`
}

type GroupSummary struct {
	Label   string        `json:"label"`
	Summary stats.Summary `json:"summary"`
}

type Report struct {
	Metric      dataset.Field        `json:"metric"`
	Alpha       float64              `json:"alpha"`
	Control     GroupSummary         `json:"control"`
	Test        GroupSummary         `json:"test"`
	Steps       []Step               `json:"steps"`
	Assumptions decision.Assumptions `json:"assumptions"`
	Selection   decision.Selection   `json:"selection"`
	Significant bool                 `json:"significant"`
	Conclusion  string               `json:"conclusion"`
}

// Comparison is the final step, the one the conclusion rests on.
func (r *Report) Comparison() Step { return r.Steps[len(r.Steps)-1] }

type Analyzer struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{log: log}
}

// Run analyses cfg.Metric with the default Analyzer.
func Run(ctx context.Context, cfg Config, table *dataset.UnifiedTable) (*Report, error) {
	return New(nil).Run(ctx, cfg, table)
}

func (a *Analyzer) Run(ctx context.Context, cfg Config, table *dataset.UnifiedTable) (*Report, error) {
	start := time.Now()
	r, err := a.run(ctx, cfg, table)
	if err != nil {
		var se *StageError
		stage := "config"
		if errors.As(err, &se) {
			stage = string(se.Stage)
		}
		metrics.StageErrors.WithLabelValues(stage).Inc()
		metrics.Analyses.WithLabelValues("error").Inc()
		a.log.Warn("analysis_halted", "metric", string(cfg.Metric), "stage", stage, "err", err.Error())
		return nil, err
	}
	metrics.AnalysisSeconds.Observe(time.Since(start).Seconds())
	metrics.Analyses.WithLabelValues(string(r.Comparison().Decision.Outcome)).Inc()
	metrics.Tests.WithLabelValues(string(r.Selection.Kind)).Inc()
	for _, s := range r.Steps {
		metrics.Decisions.WithLabelValues(string(s.Check), string(s.Decision.Outcome)).Inc()
	}
	cmp := r.Comparison()
	a.log.Info("analysis_done",
		"metric", string(r.Metric), "kind", string(r.Selection.Kind),
		"statistic", cmp.Result.Statistic, "p_value", cmp.Result.PValue,
		"outcome", string(cmp.Decision.Outcome))
	return r, nil
}

func (a *Analyzer) run(ctx context.Context, cfg Config, table *dataset.UnifiedTable) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	control, err := extract(table, cfg.ControlLabel, cfg.Metric)
	if err != nil {
		return nil, err
	}
	test, err := extract(table, cfg.TestLabel, cfg.Metric)
	if err != nil {
		return nil, err
	}

	// Assumption checks are independent of each other; all three must
	// finish before a comparison test is selected.
	var results [3]stats.TestResult
	var errs [3]error
	var g errgroup.Group
	check := func(i int, stage Stage, group string, f func() (stats.TestResult, error)) {
		g.Go(func() error {
			res, err := f()
			if err != nil {
				errs[i] = &StageError{Stage: stage, Group: group, Err: err}
				return errs[i]
			}
			results[i] = res
			return nil
		})
	}
	check(0, StageNormality, cfg.ControlLabel, func() (stats.TestResult, error) { return stats.ShapiroWilk(control) })
	check(1, StageNormality, cfg.TestLabel, func() (stats.TestResult, error) { return stats.ShapiroWilk(test) })
	check(2, StageVariance, "", func() (stats.TestResult, error) { return stats.Levene(control, test) })
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normC, normT, variance := results[0], results[1], results[2]
	alpha := cfg.Alpha
	steps := []Step{
		newStep(decision.CheckNormality, cfg.ControlLabel, "Shapiro-Wilk", "", normC, alpha),
		newStep(decision.CheckNormality, cfg.TestLabel, "Shapiro-Wilk", "", normT, alpha),
		newStep(decision.CheckVariance, "", "Levene (median-centred)", "", variance, alpha),
	}
	assumptions := decision.Assumptions{
		NormalControl: steps[0].Decision.FailToReject,
		NormalTest:    steps[1].Decision.FailToReject,
		EqualVariance: steps[2].Decision.FailToReject,
	}
	selection := decision.Evaluate(assumptions)

	cmp, err := stats.Compare(control, test, selection.Kind)
	if err != nil {
		return nil, &StageError{Stage: StageComparison, Err: err}
	}
	final := newStep(decision.CheckComparison, "", selection.Kind.Title(), selection.Kind, cmp, alpha)
	steps = append(steps, final)

	return &Report{
		Metric:      cfg.Metric,
		Alpha:       alpha,
		Control:     GroupSummary{Label: cfg.ControlLabel, Summary: stats.Describe(control)},
		Test:        GroupSummary{Label: cfg.TestLabel, Summary: stats.Describe(test)},
		Steps:       steps,
		Assumptions: assumptions,
		Selection:   selection,
		Significant: !final.Decision.FailToReject,
		Conclusion:  conclusion(cfg, final),
	}, nil
}

// RunAll analyses each field in turn and stops at the first failure,
// returning the reports completed so far.
func (a *Analyzer) RunAll(ctx context.Context, cfg Config, table *dataset.UnifiedTable, fields []dataset.Field) ([]*Report, error) {
	out := make([]*Report, 0, len(fields))
	for _, f := range fields {
		c := cfg
		c.Metric = f
		r, err := a.Run(ctx, c, table)
		if err != nil {
			return out, errors.Wrapf(err, "metric %s", f)
		}
		out = append(out, r)
	}
	return out, nil
}

func extract(table *dataset.UnifiedTable, label string, f dataset.Field) ([]float64, error) {
	col, err := table.Column(label, f)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Group: label, Err: err}
	}
	if len(col) == 0 {
		return nil, &StageError{Stage: StageExtract, Group: label,
			Err: errors.Wrapf(stats.ErrInsufficientSample, "no rows labelled %q", label)}
	}
	return col, nil
}

func newStep(c decision.Check, group, test string, kind stats.TestKind, res stats.TestResult, alpha float64) Step {
	d := decision.Decide(res, alpha)
	return Step{
		Check:      c,
		Group:      group,
		Test:       test,
		Hypothesis: decision.HypothesisFor(c, kind),
		Result:     res,
		Decision:   d,
		Verdict:    decision.Verdict(c, d),
	}
}

func conclusion(cfg Config, s Step) string {
	if s.Decision.FailToReject {
		return fmt.Sprintf("There is no statistically significant difference in %s between the %s and %s groups (p = %.4f >= %g).",
			cfg.Metric, cfg.ControlLabel, cfg.TestLabel, s.Result.PValue, cfg.Alpha)
	}
	return fmt.Sprintf("There is a statistically significant difference in %s between the %s and %s groups (p = %.4f < %g).",
		cfg.Metric, cfg.ControlLabel, cfg.TestLabel, s.Result.PValue, cfg.Alpha)
}
