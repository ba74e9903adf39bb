package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Analyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_analyses_total", Help: "Completed analyses by final outcome",
	}, []string{"outcome"})
	Tests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_tests_total", Help: "Comparison tests run, by kind",
	}, []string{"kind"})
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_decisions_total", Help: "Hypothesis decisions by check and outcome",
	}, []string{"check", "outcome"})
	StageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "abtest_stage_errors_total", Help: "Analyses halted, by failing stage",
	}, []string{"stage"})
	AnalysisSeconds = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "abtest_analysis_seconds", Help: "Wall time of one metric analysis",
	})
	RunsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "abtest_runs_stored_total", Help: "Runs persisted to the history store",
	})
)

var once sync.Once

// MustRegister registers the collectors on the default registry. Safe to call more than once.
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(Analyses, Tests, Decisions, StageErrors, AnalysisSeconds, RunsStored)
	})
}
