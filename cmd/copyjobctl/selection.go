package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/panel"
)

// selectionFlags are shared by every command that evaluates a copy.
type selectionFlags struct {
	source          string
	target          string
	sourceDatabase  string
	sourceContainer string
	targetDatabase  string
	targetContainer string
	mode            string
	jobName         string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "source database account resource id")
	cmd.Flags().StringVar(&f.target, "target", "", "target database account resource id (defaults to --source)")
	cmd.Flags().StringVar(&f.sourceDatabase, "source-db", "", "source database name")
	cmd.Flags().StringVar(&f.sourceContainer, "source-container", "", "source container name")
	cmd.Flags().StringVar(&f.targetDatabase, "target-db", "", "target database name")
	cmd.Flags().StringVar(&f.targetContainer, "target-container", "", "target container name")
	cmd.Flags().StringVar(&f.mode, "mode", "Offline", "migration type: Online or Offline")
	cmd.Flags().StringVar(&f.jobName, "name", "", "job name (generated when empty)")
	_ = cmd.MarkFlagRequired("source")
}

func (f *selectionFlags) selection() panel.Selection {
	target := f.target
	if target == "" {
		target = f.source
	}
	mode := f.mode
	name := f.jobName
	return panel.Selection{
		JobName:       &name,
		MigrationType: &mode,
		Source: &panel.Endpoint{
			AccountID:   f.source,
			DatabaseID:  f.sourceDatabase,
			ContainerID: f.sourceContainer,
		},
		Target: &panel.Endpoint{
			AccountID:   target,
			DatabaseID:  f.targetDatabase,
			ContainerID: f.targetContainer,
		},
	}
}

// openSession loads both accounts and returns a session over them.
func openSession(ctx context.Context, svc *services, f *selectionFlags) (*panel.Session, error) {
	sess := panel.Open(svc.resolver, copyjob.State{})
	if err := panel.Apply(ctx, sess, svc.arm, f.selection()); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}
