// Package report prints benchmark results.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/sumbench/internal/bench"
	"github.com/born-ml/sumbench/internal/workload"
)

// Reporter writes human readable results to a sink.
type Reporter struct {
	w io.Writer
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Header describes the run before any strategy executes.
func (r *Reporter) Header(w *workload.Workload, iterations int, deviceName string) {
	fmt.Fprintf(r.w, "n=%d seed=%d iterations=%d reference_sum=%d\n", w.Len(), w.Seed(), iterations, w.ReferenceSum())
	if deviceName != "" {
		fmt.Fprintf(r.w, "Device: %s\n", deviceName)
	}
}

// Result prints mean ± std and throughput of one strategy.
func (r *Reporter) Result(res bench.Result) {
	label := fmt.Sprintf("%-8s ", res.Name+":")
	fmt.Fprintf(r.w, "%s%.6g+-%.6g s\n", label, res.Summary.Mean.Seconds(), res.Summary.StdDev.Seconds())
	fmt.Fprintf(r.w, "%s%.6g millions/s\n", label, res.Summary.Throughput)
}

// Summary prints a table of all results with the speed-up relative to the
// first one.
func (r *Reporter) Summary(results []bench.Result) {
	if len(results) == 0 {
		return
	}
	base := results[0].Summary.Throughput

	fmt.Fprintln(r.w)
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "strategy\tmean (s)\tstd (s)\tmillions/s\tspeed-up\t")
	for _, res := range results {
		speedup := 0.0
		if base > 0 {
			speedup = res.Summary.Throughput / base
		}
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\t%.1f\t%.2fx\t\n",
			res.Name, res.Summary.Mean.Seconds(), res.Summary.StdDev.Seconds(), res.Summary.Throughput, speedup)
	}
	_ = tw.Flush()
}

// Failure prints err to w. Consistency violations use the
// "<message> But <expected> != <actual>, <file>:<line>" form.
func Failure(w io.Writer, err error) {
	var ce *bench.ConsistencyError
	if errors.As(err, &ce) {
		trial := fmt.Sprintf("trial %d", ce.Trial)
		if ce.Trial < 0 {
			trial = fmt.Sprintf("warm-up %d", -ce.Trial)
		}
		fmt.Fprintf(w, "%s (%s, %s)\n", ce.Error(), ce.Strategy, trial)
		return
	}
	fmt.Fprintln(w, strings.TrimSpace(err.Error()))
}
