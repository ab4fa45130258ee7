package main

import (
	"fmt"

	"media-redirect/pkg/config"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Loads a rules document and reports what it compiled to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := config.LoadRules(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mount paths:          %d\n", len(rules.MountPaths))
			fmt.Fprintf(out, "route rules:          %d\n", rules.RouteRules.Len())
			fmt.Fprintf(out, "path mappings:        %d\n", len(rules.Mapper.Entries()))
			fmt.Fprintf(out, "last link rules:      %d\n", len(rules.LastLink))
			fmt.Fprintf(out, "client rewrite rules: %d\n", len(rules.ClientRewrite))
			fmt.Fprintf(out, "route cache:          %t (L2 %t)\n", rules.RouteCache.Enable, rules.RouteCache.EnableL2)
			fmt.Fprintf(out, "sign:                 %t\n", rules.Sign.Enable)
			return nil
		},
	}
}
