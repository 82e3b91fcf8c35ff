package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navkit/internal/serve"
	"github.com/vango-dev/navkit/pkg/history"
	"github.com/vango-dev/navkit/pkg/kernel"
)

func matchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <url>",
		Short: "Resolve a URL against the route table",
		Long: `Resolve a URL and print the matched pattern, parameters, query and
fragment as JSON. The configured base is stripped first. A URL that
matches no route exits non-zero.

Examples:
  navkit match /users/42
  navkit match "/app/search?q=go&page=2" --base /app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if err := history.Validate(target); err != nil {
				return err
			}
			defs, _, err := a.routes(cmd.Context())
			if err != nil {
				return err
			}

			var routeErr error
			opts := append(a.cfg.KernelOptions(),
				kernel.WithLogger(a.logger),
				kernel.WithErrorListener(func(err error) { routeErr = err }),
			)
			k := kernel.New(history.NewMemory(target), defs, opts...)
			defer k.Destroy()

			if routeErr != nil {
				reportError(cmd.ErrOrStderr(), routeErr)
				return errReported
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(serve.FromRoute(k.Current()))
		},
	}
}
