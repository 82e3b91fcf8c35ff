package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

func explainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe a routing error code",
		Long: `Print the category, message and hint registered for an error code.
Without an argument every code is listed.

Examples:
  navkit explain NK004
  navkit explain`,
		Args: cobra.MaximumNArgs(1),
		// Explain needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tCATEGORY\tMESSAGE")
				for _, code := range routeerr.Codes() {
					tmpl, _ := routeerr.Lookup(code)
					fmt.Fprintf(tw, "%s\t%s\t%s\n", code, tmpl.Category, tmpl.Message)
				}
				return tw.Flush()
			}

			code := strings.ToUpper(args[0])
			tmpl, ok := routeerr.Lookup(code)
			if !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}
			fmt.Fprintf(w, "%s (%s)\n  %s\n", code, tmpl.Category, tmpl.Message)
			if tmpl.Suggestion != "" {
				fmt.Fprintf(w, "  Hint: %s\n", tmpl.Suggestion)
			}
			return nil
		},
	}
}
