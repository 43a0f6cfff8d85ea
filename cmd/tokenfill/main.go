package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/tokenfill/internal/config"
	"github.com/torosent/tokenfill/internal/logger"
	"github.com/torosent/tokenfill/internal/output"
	"github.com/torosent/tokenfill/internal/profile"
	"github.com/torosent/tokenfill/internal/render"
	"github.com/torosent/tokenfill/internal/tracing"
)

const tracingShutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.NewLoader().WithOutput(stdout).Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewWithWriter(stderr, cfg.LogLevel)

	prof, err := profile.Resolve(cfg.Profile, cfg.Profiles)
	if err != nil {
		return err
	}

	subs, err := bindValues(prof, cfg)
	if err != nil {
		return err
	}
	log.Debug("values bound", "profile", prof.Name, "tokens", len(subs))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", "err", err)
		}
	}()
	if provider.ShouldPropagate() {
		ctx = tracing.ExtractFromEnv(ctx)
	}

	opts := render.Options{
		Lock:   cfg.Lock,
		Backup: cfg.Backup,
		Strict: cfg.Strict,
		Tracer: provider.Tracer(),
		Logger: log,
	}
	if cfg.Stdout {
		opts.Output = stdout
	}

	result, err := render.New(opts).RenderFile(ctx, cfg.TemplatePath, subs)

	var residualErr *render.ResidualTokensError
	if cfg.Summary && (err == nil || errors.As(err, &residualErr)) {
		summary := output.NewSummary(prof.Name, result)
		if cfg.JSONOutput {
			if printErr := output.PrintJSONReport(stderr, summary); printErr != nil && err == nil {
				err = printErr
			}
		} else {
			output.PrintReport(stderr, summary)
		}
	}

	return err
}
