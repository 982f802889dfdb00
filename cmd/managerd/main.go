// Managerd is the business assistant daemon.
//
// It serves the HTTP API used by mgrctl, runs the deadline monitor, and can
// expose the same services to an MCP client over stdio.
//
// Configuration is loaded from ~/.config/managerd/config.yaml and
// MANAGERD_-prefixed environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	managerd
//
//	# Configure via environment
//	MANAGERD_SERVER_HTTP_PORT=9292 MANAGERD_PROVIDER_API_KEY=sk-... managerd
//
//	# Serve MCP over stdio
//	managerd mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/managerd/internal/config"
	api "github.com/fyrsmithlabs/managerd/internal/http"
	"github.com/fyrsmithlabs/managerd/internal/logging"
	"github.com/fyrsmithlabs/managerd/internal/mcp"
	"github.com/fyrsmithlabs/managerd/internal/services"
	"github.com/fyrsmithlabs/managerd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// options are the command-line flags shared by every mode.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	stdio      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config file (default ~/.config/managerd/config.yaml)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&opts.logFormat, "log-format", "json", "log format (json or console)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion(os.Stdout)
			os.Exit(0)
		case "mcp":
			opts.stdio = true
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  managerd           Start the managerd daemon\n")
			fmt.Fprintf(os.Stderr, "  managerd mcp       Serve MCP tools over stdio\n")
			fmt.Fprintf(os.Stderr, "  managerd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := runDaemon
	if opts.stdio {
		run = runStdio
	}
	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "managerd: %v\n", err)
		os.Exit(1)
	}
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "managerd by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}

// runtimeDeps holds what both modes need before they diverge.
type runtimeDeps struct {
	cfg     *config.Config
	logger  *logging.Logger
	tel     *telemetry.Telemetry
	reg     services.Registry
	cleanup func() error
}

// close releases services, then flushes telemetry and logs.
func (d *runtimeDeps) close() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
	defer cancel()

	if d.cleanup != nil {
		if err := d.cleanup(); err != nil {
			d.logger.Warn(ctx, "service cleanup failed", zap.Error(err))
		}
	}
	if err := d.tel.Shutdown(ctx); err != nil {
		d.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = d.logger.Sync()
}

// initDependencies loads configuration and builds logging, telemetry and
// the service registry. Logs go to stderr in stdio mode because stdout
// carries the MCP stream.
func initDependencies(ctx context.Context, opts options) (*runtimeDeps, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Observability.EnableTelemetry
	telCfg.ServiceName = cfg.Observability.ServiceName
	telCfg.ServiceVersion = version
	tel, err := telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if logCfg.Level, err = logging.LevelFromString(opts.logLevel); err != nil {
		return nil, err
	}
	logCfg.Format = opts.logFormat
	logCfg.Output = logging.OutputConfig{
		Stdout: !opts.stdio,
		Stderr: opts.stdio,
		OTEL:   tel.LoggerProvider() != nil,
	}
	logCfg.Fields["service"] = cfg.Observability.ServiceName
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if degraded, derr := tel.Degraded(); degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Error(derr))
	}

	reg, cleanup, err := services.Build(ctx, cfg, logger.Underlying())
	if err != nil {
		_ = tel.Shutdown(ctx)
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &runtimeDeps{cfg: cfg, logger: logger, tel: tel, reg: reg, cleanup: cleanup}, nil
}

// runDaemon serves the HTTP API until ctx is cancelled, then shuts down
// within the configured timeout.
func runDaemon(ctx context.Context, opts options) error {
	deps, err := initDependencies(ctx, opts)
	if err != nil {
		return err
	}
	defer deps.close()

	cfg, logger := deps.cfg, deps.logger
	logger.Info(ctx, "starting managerd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("provider", cfg.Provider.Name),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	srv, err := api.NewServer(deps.reg, logger.Underlying().Named("http"), &api.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown failed: %w", err)
	}
	logger.Info(shutdownCtx, "server shutdown complete")
	return nil
}

// runStdio serves MCP tools over stdin/stdout until the client disconnects
// or ctx is cancelled.
func runStdio(ctx context.Context, opts options) error {
	deps, err := initDependencies(ctx, opts)
	if err != nil {
		return err
	}
	defer deps.close()

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "managerd",
		Version: version,
		Logger:  deps.logger.Underlying().Named("mcp"),
	}, deps.reg)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	deps.logger.Info(ctx, "managerd stdio mode started",
		zap.Int("tools", server.Tools().Count()))
	return server.Run(ctx)
}
