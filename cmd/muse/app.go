package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/tjfontaine/clockwork-muse/internal/api/youtube"
	"github.com/tjfontaine/clockwork-muse/internal/config"
	"github.com/tjfontaine/clockwork-muse/internal/diagnostics"
	"github.com/tjfontaine/clockwork-muse/internal/llm"
	"github.com/tjfontaine/clockwork-muse/internal/search"
	"github.com/tjfontaine/clockwork-muse/internal/storage"
	"github.com/tjfontaine/clockwork-muse/internal/storage/memory"
	"github.com/tjfontaine/clockwork-muse/internal/storage/sqlite"
	"github.com/tjfontaine/clockwork-muse/internal/telemetry"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// app is the wiring shared by the subcommands: settings, trace sinks and
// the search client. The LLM client is built on demand because an invalid
// style must not break commands that never call it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder trace.Recorder
	search   *search.Client
	calls    *memory.Store

	store    *sqlite.Store
	shutdown func(context.Context) error
}

func newApp(opts *rootOptions, stderr io.Writer) (*app, error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.LoadFile(opts.settings)
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.InitTracer(telemetry.ServiceName, logger, cfg.Telemetry.Stdout)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, calls: memory.New(), shutdown: shutdown}

	files, err := trace.NewFiles(cfg.LLM.LogDir, cfg.Search.LogDir, cfg.LLM.LogJSON)
	if err != nil {
		a.Close()
		return nil, err
	}
	recorders := []trace.Recorder{files, trace.NewSlog(logger), a.calls}
	if cfg.LLM.Echo {
		recorders = append(recorders, trace.NewConsole(stderr, cfg.LLM.EchoChars))
	}
	if cfg.Trace.DB != "" {
		store, err := sqlite.New(cfg.Trace.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
		recorders = append(recorders, store)
	}
	a.recorder = trace.Multi(recorders...)

	a.search = search.NewFromConfig(cfg.Search,
		search.WithRecorder(a.recorder),
		search.WithLogger(logger),
	)
	return a, nil
}

func (a *app) llmClient() (*llm.Client, error) {
	return llm.NewFromConfig(a.cfg.LLM,
		llm.WithRecorder(a.recorder),
		llm.WithLogger(a.logger),
	)
}

// videos returns nil when no YouTube key is configured.
func (a *app) videos() *youtube.Client {
	if a.cfg.YouTube.APIKey == "" {
		return nil
	}
	return youtube.NewClient(a.cfg.YouTube.APIKey, youtube.WithHTTPClient(telemetry.HTTPClient()))
}

func (a *app) checker(opts ...diagnostics.Option) *diagnostics.Checker {
	base := []diagnostics.Option{
		diagnostics.WithSearch(a.search, a.cfg.Search.APIKey != ""),
		diagnostics.WithLLM(a.cfg.LLM.BaseURL, a.cfg.LLM.APIStyle, a.cfg.LLM.APIKey, a.cfg.LLM.Model),
	}
	return diagnostics.New(append(base, opts...)...)
}

// stats counts the calls made by this process.
func (a *app) stats(ctx context.Context) storage.Stats {
	stats, err := storage.Collect(ctx, a.calls)
	if err != nil {
		a.logger.Warn("collecting call stats", slog.String("error", err.Error()))
	}
	return stats
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(context.Background()))
	}
	return errors.Join(errs...)
}
