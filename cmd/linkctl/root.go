package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "linkctl",
		Short:         "Operator tooling for the media redirect service",
		Long:          `linkctl signs and verifies storage links, dry-runs route decisions and validates rules documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSignCmd(), newVerifyCmd(), newRouteCmd(), newValidateCmd())
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
