package bench

import (
	"context"
	"errors"
	"testing"

	"github.com/born-ml/sumbench/internal/stats"
	"github.com/born-ml/sumbench/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReducer returns the reference sum, off by one on trial corruptAt.
type fakeReducer struct {
	name      string
	w         *workload.Workload
	corruptAt int
	resetErr  error

	resets, runs int
	closed       bool
}

func (f *fakeReducer) Name() string { return f.name }

func (f *fakeReducer) Reset() error {
	f.resets++
	return f.resetErr
}

func (f *fakeReducer) Reduce() (uint32, error) {
	f.runs++
	sum := f.w.ReferenceSum()
	if f.runs-1 == f.corruptAt {
		sum++
	}
	return sum, nil
}

func (f *fakeReducer) Close() error {
	f.closed = true
	return nil
}

func newWorkload(t *testing.T) *workload.Workload {
	t.Helper()
	w, err := workload.Generate(1000, 42)
	require.NoError(t, err)
	return w
}

func TestRun_AllTrialsVerified(t *testing.T) {
	w := newWorkload(t)
	r := &fakeReducer{name: "fake", w: w, corruptAt: -1}

	var trials stats.Trials
	res, err := Run(context.Background(), r, w, Options{Iterations: 5}, &trials)
	require.NoError(t, err)

	assert.Equal(t, "fake", res.Name)
	assert.Equal(t, 1000, res.N)
	assert.Equal(t, 5, res.Summary.Trials)
	assert.Equal(t, 5, r.resets)
	assert.Equal(t, 5, r.runs)
	assert.Equal(t, 5, trials.Len())
}

func TestRun_ConsistencyViolation(t *testing.T) {
	w := newWorkload(t)
	r := &fakeReducer{name: "fake", w: w, corruptAt: 2}

	var trials stats.Trials
	_, err := Run(context.Background(), r, w, Options{Iterations: 10}, &trials)
	require.Error(t, err)

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fake", ce.Strategy)
	assert.Equal(t, 2, ce.Trial)
	assert.Equal(t, w.ReferenceSum(), ce.Expected)
	assert.Equal(t, w.ReferenceSum()+1, ce.Actual)
	assert.Equal(t, "bench.go", ce.File)
	assert.Positive(t, ce.Line)
	assert.Contains(t, ce.Error(), "fake result should be consistent! But ")

	// The failing trial is neither retried nor recorded.
	assert.Equal(t, 3, r.runs)
	assert.Equal(t, 2, trials.Len())
}

func TestRun_Warmup(t *testing.T) {
	w := newWorkload(t)
	r := &fakeReducer{name: "fake", w: w, corruptAt: -1}

	var trials stats.Trials
	res, err := Run(context.Background(), r, w, Options{Iterations: 3, Warmup: 2}, &trials)
	require.NoError(t, err)
	assert.Equal(t, 5, r.runs)
	assert.Equal(t, 3, res.Summary.Trials)

	// Warm-up trials are verified as well.
	r = &fakeReducer{name: "fake", w: w, corruptAt: 0}
	_, err = Run(context.Background(), r, w, Options{Iterations: 3, Warmup: 1}, &trials)
	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, -1, ce.Trial)
}

func TestRun_Errors(t *testing.T) {
	w := newWorkload(t)
	var trials stats.Trials

	_, err := Run(context.Background(), &fakeReducer{w: w, corruptAt: -1}, w, Options{}, &trials)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = Run(context.Background(), &fakeReducer{w: w, corruptAt: -1, resetErr: boom}, w, Options{Iterations: 1}, &trials)
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, &fakeReducer{w: w, corruptAt: -1}, w, Options{Iterations: 1}, &trials)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll_StopsAtFirstFailure(t *testing.T) {
	w := newWorkload(t)
	first := &fakeReducer{name: "first", w: w, corruptAt: -1}
	second := &fakeReducer{name: "second", w: w, corruptAt: 0}
	thirdBuilt := false

	cands := []Candidate{
		{Name: "first", New: func() (Reducer, error) { return first, nil }},
		{Name: "second", New: func() (Reducer, error) { return second, nil }},
		{Name: "third", New: func() (Reducer, error) {
			thirdBuilt = true
			return &fakeReducer{name: "third", w: w, corruptAt: -1}, nil
		}},
	}

	var sunk []string
	results, err := RunAll(context.Background(), cands, w, Options{Iterations: 3}, func(r Result) {
		sunk = append(sunk, r.Name)
	})

	var ce *ConsistencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "second", ce.Strategy)
	assert.Len(t, results, 1)
	assert.Equal(t, []string{"first"}, sunk)
	assert.False(t, thirdBuilt, "no strategy may run after a consistency violation")
	assert.True(t, first.closed)
	assert.True(t, second.closed)
}

func TestRunAll_SetupError(t *testing.T) {
	w := newWorkload(t)
	boom := errors.New("out of device memory")
	cands := []Candidate{
		{Name: "broken", New: func() (Reducer, error) { return nil, boom }},
	}
	_, err := RunAll(context.Background(), cands, w, Options{Iterations: 1}, nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "broken")
}

func TestConsistencyError_Format(t *testing.T) {
	err := &ConsistencyError{
		Message:  "GPU results should be consistent!",
		Expected: 10,
		Actual:   11,
		File:     "bench.go",
		Line:     42,
	}
	assert.Equal(t, "GPU results should be consistent! But 10 != 11, bench.go:42", err.Error())
	assert.NoError(t, expectSame(3, 3, "same"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "accumulator-reset", AccumulatorReset.String())
	assert.Equal(t, "aborted", Aborted.String())
	assert.Equal(t, "State(9)", State(9).String())
}
