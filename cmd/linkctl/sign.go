package main

import (
	"fmt"

	"media-redirect/pkg/auth"

	"github.com/spf13/cobra"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <url>",
		Short: "Appends a sign parameter to a download link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := cmd.Flags().GetString("secret")
			if err != nil {
				return err
			}
			hours, err := cmd.Flags().GetInt("expire-hours")
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}

			if _, ok := auth.SignPath(args[0]); !ok {
				return fmt.Errorf("%q does not address a /d/ download route", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.NewLinkSigner(secret, hours).SignURL(args[0]))
			return nil
		},
	}
	cmd.Flags().String("secret", "", "Signing secret, usually the alist token")
	cmd.Flags().Int("expire-hours", 0, "Hours until the link expires, 0 never expires")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <path> <token>",
		Short: "Checks a sign token issued for a storage path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := cmd.Flags().GetString("secret")
			if err != nil {
				return err
			}
			if err := auth.NewLinkSigner(secret, 0).Verify(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().String("secret", "", "Signing secret")
	return cmd
}
