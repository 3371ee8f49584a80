// Package cli implements the command-line interface for s3proxy.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/eunmann/s3-proxy/internal/config"
	"github.com/eunmann/s3-proxy/internal/logctx"
	"github.com/eunmann/s3-proxy/pkg/aggregate"
	"github.com/eunmann/s3-proxy/pkg/httpapi"
	"github.com/eunmann/s3-proxy/pkg/ingest"
	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/uniqueid"
)

const readHeaderTimeout = 10 * time.Second

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: s3proxy <command> [options]\ncommands: serve")
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runServe(args []string) error {
	cfg, err := buildConfig(args, os.Getenv)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg)
}

// buildConfig layers defaults, the optional --config file, the environment
// and explicitly set flags, then validates the result.
func buildConfig(args []string, getenv func(string) string) (config.Config, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML configuration file")
	bucket := fs.String("bucket", "", "S3 bucket to serve (required)")
	addr := fs.String("addr", "", "listen address (default :8080)")
	backend := fs.String("backend", "", "object store backend: s3 or memory")
	concurrency := fs.Int("concurrency", 0, "maximum concurrent object retrievals")
	region := fs.String("region", "", "AWS region")
	endpoint := fs.String("endpoint", "", "custom S3 endpoint URL (e.g. MinIO)")
	pathStyle := fs.Bool("path-style", false, "use path-style S3 addressing")
	debug := fs.Bool("debug", false, "enable debug logging")
	logHuman := fs.Bool("log-human", false, "human-readable console logs instead of JSON")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(cfg, *configPath); err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.ApplyEnv(cfg, getenv)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bucket":
			cfg.Bucket = *bucket
		case "addr":
			cfg.Addr = *addr
		case "backend":
			cfg.Backend = *backend
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "region":
			cfg.Region = *region
		case "endpoint":
			cfg.Endpoint = *endpoint
		case "path-style":
			cfg.UsePathStyle = *pathStyle
		case "debug":
			cfg.Debug = *debug
		case "log-human":
			cfg.LogHuman = *logHuman
		}
	})

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingBucket) {
			return config.Config{}, fmt.Errorf("%w (set --bucket or %s)", err, config.EnvBucket)
		}
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		store := objectstore.NewMemoryStore(nil)
		store.CreateBucket(cfg.Bucket)
		return store, nil
	default:
		store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 store: %w", err)
		}
		return store, nil
	}
}

// serve runs the gateway until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, cfg config.Config) error {
	logger := logctx.NewConfiguredLogger(os.Stderr, cfg.Debug, cfg.LogHuman)
	logctx.SetDefaultLogger(logger)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	service := httpapi.NewService(cfg.Bucket,
		aggregate.New(store, aggregate.Options{Concurrency: cfg.Concurrency}),
		ingest.New(store, uniqueid.NewGenerator()))

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           service.RegisterEndpoint(mux.NewRouter()),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return logctx.WithLogger(context.Background(), logger)
		},
	}

	logger.Info().
		Str("bucket", cfg.Bucket).
		Str("addr", listener.Addr().String()).
		Str("backend", cfg.Backend).
		Int("concurrency", cfg.Concurrency).
		Msg("configured to use bucket")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
