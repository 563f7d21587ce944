// Command microanalyst-server serves token analyses over HTTP and a live
// browser dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/JackSmack1971/microanalyst-tools/internal/app"
	"github.com/JackSmack1971/microanalyst-tools/pkg/config"
	"github.com/JackSmack1971/microanalyst-tools/pkg/logging"
	"github.com/JackSmack1971/microanalyst-tools/pkg/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

type options struct {
	configPath string
	addr       string
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("microanalyst-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error, off")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.logLevel != "" && !logging.ValidLevel(opts.logLevel) {
		return opts, fmt.Errorf("invalid log level %q", opts.logLevel)
	}
	return opts, nil
}

// logLevel picks the flag, then a non-default configured level, then info.
func logLevel(flagLevel string, cfg config.Config) logging.LogLevel {
	switch {
	case flagLevel != "":
		return logging.LogLevel(flagLevel)
	case cfg.Logging.Level != config.Default().Logging.Level:
		return logging.LogLevel(cfg.Logging.Level)
	default:
		return logging.LevelInfo
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	noColor := os.Getenv("NO_COLOR") != ""
	bootstrap := logging.Setup(logging.Config{Level: logging.LevelWarn, Output: stderr, Pretty: logging.IsTerminal(os.Stderr), NoColor: noColor})
	cfg := config.Load(opts.configPath, bootstrap)
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	logger := logging.Setup(logging.Config{
		Level:   logLevel(opts.logLevel, cfg),
		Pretty:  cfg.Logging.Pretty || logging.IsTerminal(os.Stderr),
		NoColor: noColor,
		Output:  stderr,
	})

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info().
		Str("cache_backend", a.Cache.Backend()).
		Dur("stream_interval", cfg.Server.StreamInterval).
		Msg("Microanalyst server configured")

	srv := server.New(a.Analyzer, a.Cache, server.Config{
		Addr:           cfg.Server.Addr,
		DefaultDays:    cfg.Defaults.Days,
		StreamInterval: cfg.Server.StreamInterval,
	})
	return srv.ListenAndServe(ctx)
}
