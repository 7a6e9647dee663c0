package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
)

var (
	remediateFlags   selectionFlags
	remediateSection string
)

var remediateCmd = &cobra.Command{
	Use:   "remediate",
	Short: "Apply the fix for one prerequisite section, then re-check.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		section := prereq.SectionID(strings.TrimSpace(remediateSection))
		if section == "" {
			return fmt.Errorf("--section is required")
		}

		svc, err := newServices()
		if err != nil {
			return err
		}
		sess, err := openSession(cmd.Context(), svc, &remediateFlags)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Remediate(cmd.Context(), svc.remediator, section); err != nil {
			return fmt.Errorf("remediate %s: %w", section, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %s.\n\n", section)

		groups, err := sess.Resolve(cmd.Context())
		if err != nil {
			return err
		}
		return reportPrerequisites(cmd.OutOrStdout(), groups)
	},
}

func init() {
	remediateFlags.register(remediateCmd)
	remediateCmd.Flags().StringVar(&remediateSection, "section", "", "section id: addManagedIdentity, defaultManagedIdentity, readPermissionAssigned, onlineCopyEnabled")
}
