package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errReported marks an error whose details were already written.
var errReported = errors.New("navkit: failed")

func main() {
	if err := newRootCmd(newApp(os.Stdout, os.Stderr)).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			reportError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "navkit",
		Short: "URL routing engine for server-driven UIs",
		Long: `navkit resolves locations against a tree of route patterns and runs
the navigation protocol (guards, plugins, middleware) for each client.

Routes are read from a YAML file, locally or from S3:

  navkit routes                       Print the ranked route table
  navkit match /users/42?tab=posts    Resolve one URL
  navkit serve --watch                Host WebSocket sessions
  navkit explain NK001                Describe an error code

Configuration is read from navkit.yaml, NAVKIT_* environment variables
and flags, in increasing priority.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./navkit.yaml)")
	flags.String("routes", "", "route file, a local path or s3://bucket/key")
	flags.String("base", "", "mount prefix of every route")
	flags.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json, logfmt)")

	rootCmd.AddCommand(
		routesCmd(a),
		matchCmd(a),
		explainCmd(a),
		serveCmd(a),
		versionCmd(a),
	)
	return rootCmd
}

// reportError writes err to w. Routing errors get the boxed terminal
// format on a TTY and a single line otherwise.
func reportError(w io.Writer, err error) {
	var re *routeerr.Error
	if errors.As(err, &re) && !isTerminal(w) {
		fmt.Fprintln(w, re.FormatCompact())
		return
	}
	routeerr.PrintError(w, err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
