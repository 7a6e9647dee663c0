package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Azure/cosmos-explorer-sub010/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "copyjobctl",
	Short:         "copyjobctl checks prerequisites for and manages Cosmos DB container copy jobs.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandExecutionContext{
			CommandPath:       cmd.CommandPath(),
			UsesStructuredLog: commandUsesStructuredLogging(cmd),
		}
		setCommandExecutionContext(ctx)

		// Interactive commands print results on stdout; keep stderr to
		// warnings unless the operator asked for a level.
		if !ctx.UsesStructuredLog && os.Getenv(logging.EnvLevel) == "" {
			cfg := logging.Config{Format: "text", Level: slog.LevelWarn}
			slog.SetDefault(logging.NewLogger(cfg, cmd.ErrOrStderr(), ctx.CommandPath))
			return nil
		}
		_, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
			Command: ctx.CommandPath,
			Writer:  cmd.ErrOrStderr(),
		})
		return err
	},
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd, checkCmd, remediateCmd, jobsCmd)
}
