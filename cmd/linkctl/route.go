package main

import (
	"fmt"
	"net/http"
	"net/url"

	"media-redirect/pkg/config"
	"media-redirect/pkg/rule"

	"github.com/spf13/cobra"
)

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route <path>",
		Short: "Shows the route decision and mapped path for a media file path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			rulesFile, _ := flags.GetString("rules")
			uri, _ := flags.GetString("uri")
			query, _ := flags.GetString("query")
			userAgent, _ := flags.GetString("user-agent")
			remoteAddr, _ := flags.GetString("remote-addr")
			notLocal, _ := flags.GetBool("not-local")
			alistRes, _ := flags.GetBool("alist-res")

			rules, err := config.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			values, err := url.ParseQuery(query)
			if err != nil {
				return fmt.Errorf("invalid --query: %w", err)
			}
			headers := http.Header{}
			if userAgent != "" {
				headers.Set("User-Agent", userAgent)
			}
			ctx := rule.NewContext(uri, values, headers, map[string]string{"remote_addr": remoteAddr})

			d := rules.Decider.Decide(ctx, args[0], alistRes, notLocal)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "action: %s\n", d.Action)
			fmt.Fprintf(out, "reason: %s\n", d.Reason)
			if d.Action != rule.ActionProxy && d.Action != rule.ActionBlock && !alistRes {
				fmt.Fprintf(out, "mapped: %s\n", rules.Mapper.Map(args[0], notLocal))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String("rules", "", "Rules document, defaults apply when empty")
	flags.String("uri", "/emby/videos/1/stream", "Request uri")
	flags.String("query", "", "Request query string, e.g. MediaSourceId=1&internal=1")
	flags.String("user-agent", "", "Client User-Agent")
	flags.String("remote-addr", "", "Client address")
	flags.Bool("not-local", false, "Treat the path as strm content")
	flags.Bool("alist-res", false, "Treat the path as a storage backend link")
	return cmd
}
