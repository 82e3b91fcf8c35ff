package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/navkit/internal/serve"
	"github.com/vango-dev/navkit/pkg/routeconfig"
	"github.com/vango-dev/navkit/pkg/router"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host navigation sessions over WebSocket",
		Long: `Start the navigation server.

Endpoints:
  GET /ws              WebSocket session, one router kernel per connection
  GET /api/match?url=  Resolve a URL as JSON
  GET /metrics         Prometheus metrics
  GET /healthz         Health check

With --watch a local route file is reloaded into every live session
when it changes.

Examples:
  navkit serve
  navkit serve --addr :9000 --watch
  navkit serve --hash`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	cmd.Flags().Bool("hash", false, "Keep the logical path in the URL fragment")
	cmd.Flags().Float64("pop-rate", 0, "Browser pops accepted per second per session")
	cmd.Flags().Bool("watch", false, "Reload a local route file when it changes")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	defs, src, err := a.routes(ctx)
	if err != nil {
		return err
	}

	srv := serve.New(defs, serve.Options{
		Config: a.cfg,
		Logger: a.logger,
	})

	var watcher *routeconfig.Watcher
	if a.cfg.Watch {
		file, ok := src.(routeconfig.FileSource)
		if !ok {
			a.logger.Warn("watch only applies to local route files", "routes", src.String())
		} else if watcher, err = routeconfig.NewWatcher(file.Path, routeconfig.WithLogger(a.logger)); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(ctx, func(defs []router.RouteDefinition) { srv.SetRoutes(defs) })
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		srv.Wait()
		return err
	})

	success(a.stdout, "Serving %d routes on %s", len(router.Flatten(defs)), ln.Addr())
	return g.Wait()
}
