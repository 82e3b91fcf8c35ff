package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navkit/pkg/routeconfig"
	"github.com/vango-dev/navkit/pkg/router"
)

func routesCmd(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the flattened route table in match order, most specific first.

Examples:
  navkit routes
  navkit routes --routes s3://config/routes.yaml
  navkit routes --yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, _, err := a.routes(cmd.Context())
			if err != nil {
				return err
			}
			if asYAML {
				data, err := routeconfig.Encode(defs)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return printRoutes(cmd, router.Rank(router.Flatten(defs)))
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the route file instead of the table")

	return cmd
}

func printRoutes(cmd *cobra.Command, ranked []*router.RouteDefinition) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tPATTERN\tCOMPONENT\tMETA")
	for _, def := range ranked {
		score := "-"
		if cp, err := router.Compile(def.Path); err == nil {
			score = fmt.Sprint(cp.Score)
		}
		component := "-"
		if def.Component != nil {
			component = fmt.Sprint(def.Component)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", score, def.Path, component, formatMeta(def.Meta))
	}
	return tw.Flush()
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, meta[k])
	}
	return strings.Join(parts, " ")
}
