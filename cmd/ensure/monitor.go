package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ensureops/ensure/internal/config"
	"github.com/ensureops/ensure/internal/datadog"
)

type monitorOptions struct {
	DeclPath string
}

func newMonitorCmd(root *rootFlags) *cobra.Command {
	opts := monitorOptions{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Idempotently register a monitor declaration with Datadog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, opts, root.verbose)
		},
	}

	cmd.Flags().StringVarP(&opts.DeclPath, "config", "c", "", "Path to declaration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runMonitor(cmd *cobra.Command, opts monitorOptions, verbose bool) error {
	decl, err := config.ParseMonitorDeclaration(opts.DeclPath)
	if err != nil {
		return err
	}

	applyDatadogKeyFallback(decl)
	if decl.API.APIKey == "" || decl.API.AppKey == "" {
		return fmt.Errorf("api_key and app_key are required; set them in the declaration or via the DATADOG_API_KEY and DATADOG_APP_KEY environment variables")
	}

	log, err := newLogger(verbose)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := datadog.NewClient(decl.API)

	outcome, err := datadog.New(client, log).Ensure(ctx, decl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return nil
}

// applyDatadogKeyFallback fills the API keys from the environment when the
// declaration leaves them empty.
func applyDatadogKeyFallback(decl *config.MonitorDeclaration) {
	if decl.API.APIKey == "" {
		decl.API.APIKey = os.Getenv("DATADOG_API_KEY")
	}
	if decl.API.AppKey == "" {
		decl.API.AppKey = os.Getenv("DATADOG_APP_KEY")
	}
}
