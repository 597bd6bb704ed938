package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"theftalert/internal/compose"
	"theftalert/internal/config"
	"theftalert/internal/directory"
	"theftalert/internal/dispatch"
	"theftalert/internal/engine"
	"theftalert/internal/inbox"
	"theftalert/internal/ledger"
	"theftalert/internal/metrics"
	"theftalert/internal/store"
	"theftalert/internal/transport"
)

type appOptions struct {
	// DryRun swaps in the memory ledger, memory inbox and log-only senders.
	DryRun bool
	// UsersFixture, when set, replaces the configured directory with the
	// users in a YAML fixture.
	UsersFixture string
}

// app holds the engine and everything it was built from.
type app struct {
	cfg        *config.Config
	store      *store.Store
	directory  directory.Directory
	guard      ledger.Guard
	web        dispatch.WebSink
	senders    transport.Set
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine
	metrics    *metrics.Metrics
	closers    []func() error
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{
		cfg:     cfg,
		store:   st,
		metrics: metrics.New(),
		closers: []func() error{st.Close},
	}

	dir, err := a.openDirectory(ctx, opts)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.directory = dir

	if opts.DryRun {
		a.guard = ledger.NewMemory(cfg.LeaseDuration())
		a.web = inbox.NewMemory()
	} else {
		a.guard = ledger.NewSQLite(st, cfg.LeaseDuration())
		a.web = inbox.New(st)
	}
	a.senders = transport.NewSet(cfg, logger, opts.DryRun)

	a.dispatcher = dispatch.New(dispatch.Dependencies{
		Guard:   a.guard,
		Senders: a.senders,
		Web:     a.web,
		Metrics: a.metrics,
		Logger:  logger,
	}, dispatch.Options{
		Workers:        cfg.Dispatch.Workers,
		ChannelTimeout: cfg.ChannelTimeout(),
	})
	a.engine = engine.New(engine.Dependencies{
		Directory:  a.directory,
		Composer:   compose.New(compose.Options{LinkBaseURL: cfg.Links.BaseURL}),
		Dispatcher: a.dispatcher,
		Metrics:    a.metrics,
		Logger:     logger,
	}, engine.Options{
		Workers:           cfg.Dispatch.Workers,
		InvocationTimeout: cfg.InvocationTimeout(),
	})
	return a, nil
}

func (a *app) openDirectory(ctx context.Context, opts appOptions) (directory.Directory, error) {
	if path := strings.TrimSpace(opts.UsersFixture); path != "" {
		users, err := directory.LoadFixture(path)
		if err != nil {
			return nil, err
		}
		return directory.NewStatic(users), nil
	}

	switch a.cfg.Directory.Driver {
	case config.DirectoryPostgres:
		pg, err := directory.OpenPostgres(ctx, a.cfg.Directory.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres directory: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	default:
		return directory.NewSQLite(a.store), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
