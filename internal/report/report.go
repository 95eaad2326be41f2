// Package report renders screening results for the console. It is a
// presentation surface only; the screener never depends on it.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/quantfold/earnscan/internal/screener"
)

// WriteResults renders a batch. With showAll false only passing symbols are
// listed; failures are always summarized at the end.
func WriteResults(w io.Writer, batch *screener.BatchResult, showAll bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tVERDICT\tSRC\tAVG VOL\tIV30/RV30\tTS SLOPE\tEXP MOVE")

	listed := 0
	for _, r := range batch.Results {
		if !showAll && !r.Passes() {
			continue
		}
		listed++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %.0f\t%s %.2f\t%s %.5f\t%s\n",
			r.Symbol,
			verdict(r),
			r.Source,
			mark(r.AvgVolumeOK), r.AvgVolume,
			mark(r.IVRVRatioOK), r.IVRVRatio,
			mark(r.TermSlopeOK), r.TermSlope,
			orDash(r.ExpectedMove),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if listed == 0 {
		fmt.Fprintln(w, "no symbols to report")
	}

	fmt.Fprintf(w, "\n%d screened, %d passed, %d rejected, %d failed\n",
		batch.Total, batch.Passed, batch.Rejected, batch.Failed)

	if len(batch.Errors) > 0 {
		fmt.Fprintln(w, "\nfailures:")
		for _, e := range batch.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return nil
}

func verdict(r *screener.Result) string {
	if r.Passes() {
		return "PASS"
	}
	return "REJECT"
}

func mark(ok bool) string {
	if ok {
		return "+"
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
