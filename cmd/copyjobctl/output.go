package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Azure/cosmos-explorer-sub010/internal/jobs"
)

// isTerminal reports whether w is an interactive terminal. Pipes and files
// get JSON so the output can be consumed by other tools.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeJobs(w io.Writer, records []jobs.CopyJobRecord, table bool) error {
	if !table {
		return json.NewEncoder(w).Encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No copy jobs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tPROGRESS\tMODE\tDURATION\tUPDATED\tACTIONS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s%%\t%s\t%s\t%s\t%v\n",
			r.Name, r.Status, strconv.Itoa(r.CompletionPercentage), r.Mode, r.Duration, r.LastUpdatedTime, r.Actions)
	}
	return tw.Flush()
}
