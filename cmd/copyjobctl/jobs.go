package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/jobs"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

var (
	jobsAccount  string
	jobsJSON     bool
	jobsInterval time.Duration
	createFlags  selectionFlags
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List, watch and control data transfer jobs.",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the copy jobs of an account.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		p := &jobs.Poller{Lister: svc.arm, AccountID: jobsAccount}
		records, err := p.PollOnce(cmd.Context())
		if err != nil {
			return err
		}
		return writeJobs(cmd.OutOrStdout(), records, !jobsJSON && isTerminal(cmd.OutOrStdout()))
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Poll an account's copy jobs and print the list whenever a status changes.",
	Args:        cobra.NoArgs,
	Annotations: structuredLog(),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		interval := jobsInterval
		if interval <= 0 {
			interval = svc.cfg.JobPollInterval
		}

		out := cmd.OutOrStdout()
		table := !jobsJSON && isTerminal(out)
		p := &jobs.Poller{
			Lister:    svc.arm,
			AccountID: jobsAccount,
			Interval:  interval,
			OnChange: func(records []jobs.CopyJobRecord) {
				if table {
					fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.Kitchen))
				}
				if err := writeJobs(out, records, table); err != nil {
					cmd.PrintErrln(err)
				}
			},
		}
		p.Run(cmd.Context())
		return nil
	},
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a copy job once every prerequisite is satisfied.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svc, err := newServices()
		if err != nil {
			return err
		}
		sess, err := openSession(ctx, svc, &createFlags)
		if err != nil {
			return err
		}
		defer sess.Close()

		groups, err := sess.Resolve(ctx)
		if err != nil {
			return err
		}
		if !prereq.AllSatisfied(groups) {
			return reportPrerequisites(cmd.OutOrStdout(), groups)
		}

		accountID, in, err := jobs.NewCreateInput(sess.Snapshot(), time.Now())
		if err != nil {
			return err
		}
		created, err := svc.arm.CreateDataTransferJob(ctx, accountID, in)
		if err != nil {
			return err
		}
		name := created.Name
		if name == "" {
			name = in.JobName
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created copy job %s on %s.\n", name, accountID)
		return nil
	},
}

func newJobActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " NAME",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a copy job.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newServices()
			if err != nil {
				return err
			}
			return runJobAction(cmd.Context(), svc.arm, cmd.OutOrStdout(), jobsAccount, args[0], action)
		},
	}
}

type jobActionClient interface {
	GetDataTransferJob(ctx context.Context, accountID, jobName string) (arm.DataTransferJob, error)
	DataTransferJobAction(ctx context.Context, accountID, jobName, action string) (arm.DataTransferJob, error)
}

// runJobAction refuses actions the job's current status does not offer.
func runJobAction(ctx context.Context, client jobActionClient, out io.Writer, account, name, action string) error {
	job, err := client.GetDataTransferJob(ctx, account, name)
	if err != nil {
		return err
	}
	current, err := jobs.NewRecord(job)
	if err != nil {
		return err
	}
	if !jobs.Allowed(current.Status, current.Mode, action) {
		return fmt.Errorf("cannot %s job %s: status is %s", action, name, current.Status)
	}
	if _, err := client.DataTransferJobAction(ctx, account, name, action); err != nil {
		return err
	}
	fmt.Fprintf(out, "Requested %s for job %s.\n", action, name)
	return nil
}

func validateAccountFlag(cmd *cobra.Command, args []string) error {
	if !resourceid.Parse(jobsAccount).Complete() {
		return errors.New("--account must be a database account resource id")
	}
	return nil
}

func init() {
	jobsCmd.PersistentFlags().StringVar(&jobsAccount, "account", "", "database account resource id that owns the jobs")
	jobsCmd.PersistentFlags().BoolVar(&jobsJSON, "json", false, "print JSON even on a terminal")
	jobsWatchCmd.Flags().DurationVar(&jobsInterval, "interval", 0, "poll interval (defaults to JOB_POLL_INTERVAL)")
	createFlags.register(jobsCreateCmd)

	for _, c := range []*cobra.Command{jobsListCmd, jobsWatchCmd} {
		c.PreRunE = validateAccountFlag
	}
	jobsCmd.AddCommand(jobsListCmd, jobsWatchCmd, jobsCreateCmd)
	for _, action := range []string{arm.JobActionPause, arm.JobActionResume, arm.JobActionCancel, arm.JobActionComplete} {
		c := newJobActionCmd(action)
		c.PreRunE = validateAccountFlag
		jobsCmd.AddCommand(c)
	}
}
