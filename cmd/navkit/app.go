package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vango-dev/navkit/internal/config"
	"github.com/vango-dev/navkit/internal/logging"
	"github.com/vango-dev/navkit/pkg/routeconfig"
	"github.com/vango-dev/navkit/pkg/router"
)

// flagKeys maps configuration keys to the flags that override them.
var flagKeys = map[string]string{
	"routes":          "routes",
	"base":            "base",
	"log.level":       "log-level",
	"log.format":      "log-format",
	"server.addr":     "addr",
	"server.hash":     "hash",
	"server.pop_rate": "pop-rate",
	"watch":           "watch",
}

// app carries the state shared by every command.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	cfgFile string

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger

	// newS3 builds the client for s3:// route files.
	newS3 func(config.S3Config) routeconfig.ObjectGetter
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		v:      viper.New(),
		newS3:  newS3Client,
	}
}

// load reads configuration and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(a.stderr, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: "navkit",
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	if path := cfg.Path(); path != "" {
		logger.Debug("using config file", "path", path)
	}
	return nil
}

// source resolves the configured route file location.
func (a *app) source() (routeconfig.Source, error) {
	var client routeconfig.ObjectGetter
	if routeconfig.IsS3(a.cfg.Routes) {
		client = a.newS3(a.cfg.S3)
	}
	return routeconfig.ParseSource(a.cfg.Routes, client)
}

// routes loads the configured route file.
func (a *app) routes(ctx context.Context) ([]router.RouteDefinition, routeconfig.Source, error) {
	src, err := a.source()
	if err != nil {
		return nil, nil, err
	}
	defs, err := routeconfig.Load(ctx, src)
	if err != nil {
		return nil, nil, err
	}
	return defs, src, nil
}

func newS3Client(cfg config.S3Config) routeconfig.ObjectGetter {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

// envCredentials reads static credentials from the standard AWS
// environment variables.
type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("s3: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "navkit environment",
	}, nil
}
