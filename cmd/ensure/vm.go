package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ensureops/ensure/internal/config"
	"github.com/ensureops/ensure/internal/proxmox"
)

type vmOptions struct {
	DeclPath string
}

func newVMCmd(root *rootFlags) *cobra.Command {
	opts := vmOptions{}

	cmd := &cobra.Command{
		Use:   "vm",
		Short: "Reconcile a VM declaration against a Proxmox VE cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVM(cmd, opts, root.verbose)
		},
	}

	cmd.Flags().StringVarP(&opts.DeclPath, "config", "c", "", "Path to declaration file")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runVM(cmd *cobra.Command, opts vmOptions, verbose bool) error {
	decl, err := config.ParseVMDeclaration(opts.DeclPath)
	if err != nil {
		return err
	}

	applyProxmoxPasswordFallback(decl)
	if decl.API.Password == "" {
		return fmt.Errorf("api password is not set; set api.password or the PROXMOX_PASSWORD environment variable")
	}

	log, err := newLogger(verbose)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := proxmox.NewClient(ctx, decl.API)
	if err != nil {
		return err
	}

	outcome, err := proxmox.New(client, log).Ensure(ctx, decl)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return nil
}

// applyProxmoxPasswordFallback fills the API password from the environment
// when the declaration leaves it empty. Credential acquisition stays at the
// CLI boundary; adapters only hold credentials for the invocation.
func applyProxmoxPasswordFallback(decl *config.VMDeclaration) {
	if decl.API.Password == "" {
		decl.API.Password = os.Getenv("PROXMOX_PASSWORD")
	}
}
