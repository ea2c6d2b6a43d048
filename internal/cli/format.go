package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"costbook/internal/chart"
	"costbook/internal/core"
	"costbook/internal/view"
)

const maxLabelWidth = 40

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable lists a view with its count and total footer.
func printTable[T core.Record](w io.Writer, labelHeader string, res view.Result[T]) {
	if res.Count == 0 {
		fmt.Fprintln(w, "Nothing to show.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\tVALUE\tDATE\n", labelHeader)
	for _, r := range res.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Identity(),
			truncate(r.Label(), maxLabelWidth),
			core.FormatAmount(r.Value()),
			r.When().Format(chart.DateLayout))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %s across %d record(s)\n", core.FormatAmount(res.Total), res.Count)
}

func printBundle(w io.Writer, b chart.Bundle) {
	fmt.Fprintln(w, "By label:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range b.Categorical {
		fmt.Fprintf(tw, "  %s\t%s\n", truncate(s.Label, maxLabelWidth), core.FormatAmount(s.Value))
	}
	tw.Flush()

	fmt.Fprintln(w, "Over time:")
	if !b.Renderable {
		fmt.Fprintf(w, "  not enough data (need at least %d dated records)\n", chart.MinTemporalPoints)
		return
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range b.Temporal {
		fmt.Fprintf(tw, "  %s\t%s\n", p.Time, core.FormatAmount(p.Value))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
