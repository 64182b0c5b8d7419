// Package main runs a single analytics query and writes the CSV summary to disk.
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

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/analytics/analyticsapi"
	"github.com/weatherdash/weatherdash/internal/config"
	"github.com/weatherdash/weatherdash/internal/download"
	"github.com/weatherdash/weatherdash/internal/provider/resilience"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "analytics-export:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("analytics-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var filter analytics.Filter
	fs.StringVar(&filter.City, "city", "", "city to query (empty for all)")
	fs.StringVar(&filter.Start, "start", "", "start date, YYYY-MM-DD")
	fs.StringVar(&filter.End, "end", "", "end date, YYYY-MM-DD")
	baseURL := fs.String("base-url", cfg.Analytics.BaseURL, "analytics service base URL")
	out := fs.String("out", cfg.ExportDir, "directory to write the export into")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := filter.Validate(); err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Logger()

	httpCfg := analyticsapi.DefaultHTTPConfig(nil, log)
	httpCfg.Timeout = cfg.Analytics.Timeout
	client := analyticsapi.NewClient(analyticsapi.ClientConfig{
		BaseURL:    *baseURL,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     log,
	})

	controller := analytics.NewController(analytics.ControllerConfig{
		Fetcher: client,
		Logger:  log,
	})

	st := controller.RunQuery(ctx, filter)
	if st.Phase == analytics.PhaseError {
		return errors.New(st.Error)
	}

	saver := download.NewFileSaver(*out, log)
	ok, err := controller.ExportTo(ctx, saver)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no result to export")
	}
	return nil
}
