package storage

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/decision"
	"github.com/yasi-python/abtest/pkg/stats"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "runs.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func report(p float64) *analysis.Report {
	res := stats.TestResult{Statistic: 1.5, PValue: p, DoF: 10, N1: 6, N2: 6}
	return &analysis.Report{
		Metric:    "Purchase",
		Alpha:     0.05,
		Steps:     []analysis.Step{{Check: decision.CheckComparison, Result: res, Decision: decision.Decide(res, 0.05)}},
		Selection: decision.Selection{Kind: stats.ParametricEqualVar, Reason: "normal_equal_variance"},
	}
}

func TestPutGetRun(t *testing.T) {
	db := openTemp(t)
	r := NewRun("control.csv", "test.csv", analysis.DefaultConfig(), []*analysis.Report{report(0.3)})
	require.NotEmpty(t, r.ID)
	require.NoError(t, db.PutRun(r))

	got, err := db.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Control, got.Control)
	assert.Equal(t, analysis.DefaultConfig(), got.Config)
	require.Len(t, got.Reports, 1)
	assert.Equal(t, 0.3, got.Reports[0].Comparison().Result.PValue)
	assert.True(t, got.Reports[0].Comparison().Decision.FailToReject)
}

func TestGetMissing(t *testing.T) {
	db := openTemp(t)
	_, err := db.GetRun("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteRun("nope"), ErrNotFound))
	assert.Error(t, db.PutRun(RunRecord{}))
}

func TestListNewestFirstAndDelete(t *testing.T) {
	db := openTemp(t)
	var ids []string
	for i := int64(0); i < 3; i++ {
		r := NewRun("c", "t", analysis.DefaultConfig(), nil)
		r.CreatedUnix = 1_700_000_000 + i*60
		require.NoError(t, db.PutRun(r))
		ids = append(ids, r.ID)
	}

	all, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	two, err := db.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	require.NoError(t, db.DeleteRun(ids[1]))
	all, err = db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{ids[2], ids[0]}, []string{all[0].ID, all[1].ID})
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.bolt")
	db, err := Open(path)
	require.NoError(t, err)
	r := NewRun("c", "t", analysis.DefaultConfig(), nil)
	require.NoError(t, db.PutRun(r))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetRun(r.ID)
	assert.NoError(t, err)
}
