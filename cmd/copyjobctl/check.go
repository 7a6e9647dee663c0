package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
)

var checkFlags selectionFlags

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate copy-job prerequisites for a source and target account.",
	Long: "Evaluate copy-job prerequisites for a source and target account.\n\n" +
		"Exits 0 when a job may start and 2 when a prerequisite is unmet.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context(), svc, &checkFlags)
		if err != nil {
			return err
		}
		defer sess.Close()

		groups, err := sess.Resolve(cmd.Context())
		if err != nil {
			return err
		}
		return reportPrerequisites(cmd.OutOrStdout(), groups)
	},
}

func init() {
	checkFlags.register(checkCmd)
}

// reportPrerequisites prints groups and turns an unmet prerequisite into
// a silent non-zero exit.
func reportPrerequisites(w io.Writer, groups []prereq.Group) error {
	if err := writePrerequisites(w, groups); err != nil {
		return err
	}
	if prereq.AllSatisfied(groups) {
		return nil
	}
	return errNotReady
}

func writePrerequisites(w io.Writer, groups []prereq.Group) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No prerequisites apply; the copy can start.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tSECTION\tSTATE\tDETAIL")
	for _, g := range groups {
		for _, s := range g.Sections {
			detail := ""
			switch {
			case s.Err != nil:
				detail = s.Err.Error()
			case s.Blocked:
				detail = "waiting on an earlier step"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, s.ID, s.State, detail)
		}
	}
	return tw.Flush()
}
