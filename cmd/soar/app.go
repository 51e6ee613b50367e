package main

import (
	"context"
	"fmt"

	"github.com/soarpm/soar/internal/catalogdb"
	"github.com/soarpm/soar/internal/catalogsync"
	"github.com/soarpm/soar/internal/color"
	"github.com/soarpm/soar/internal/config"
	"github.com/soarpm/soar/internal/fetcher"
	"github.com/soarpm/soar/internal/ledger"
	"github.com/soarpm/soar/internal/lifecycle"
	"github.com/soarpm/soar/internal/log"
	"github.com/soarpm/soar/internal/pkgquery"
	"github.com/soarpm/soar/internal/userconfig"
)

// app bundles the long-lived collaborators most subcommands need:
// resolved directories, the user's config file, the install ledger, and a
// lifecycle driver wired against a downloader. Each subcommand's RunE
// builds one with newApp.
type app struct {
	cfg    *config.Config
	user   *userconfig.Config
	ledger *ledger.DB
	driver *lifecycle.Driver
	colorW *color.Writer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	userCfg, err := userconfig.Load(cfg)
	if err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	led, err := ledger.Open(context.Background(), cfg.LedgerDBPath())
	if err != nil {
		return nil, err
	}

	downloader := fetcher.NewHTTPDownloader()
	parallelLimit := userCfg.EffectiveParallelLimit()
	if !userCfg.ParallelEnabled() {
		parallelLimit = 0
	}
	driver := lifecycle.New(cfg, led, downloader, parallelLimit)

	return &app{
		cfg:    cfg,
		user:   userCfg,
		ledger: led,
		driver: driver,
		colorW: color.New(colorEnabled()),
	}, nil
}

func (a *app) close() {
	a.ledger.Close()
}

// openCatalogs refreshes and opens every configured repository's catalog,
// in config declaration order, returning a pkgquery.Resolver over them and
// a closer that releases every underlying connection.
func (a *app) openCatalogs(ctx context.Context) (*pkgquery.Resolver, func(), error) {
	var repos []pkgquery.Repository
	var dbs []*catalogdb.DB

	closer := func() {
		for _, db := range dbs {
			db.Close()
		}
	}

	for _, r := range a.user.Repositories {
		if err := catalogsync.Ensure(ctx, a.cfg, r); err != nil {
			log.Default().Warn("catalog refresh failed, using last cached copy", "repository", r.Name, "error", err)
		}

		db, err := catalogdb.Open(ctx, r.Name, a.cfg.CatalogDBPath(r.Name))
		if err != nil {
			closer()
			return nil, nil, err
		}
		dbs = append(dbs, db)
		repos = append(repos, pkgquery.Repository{Name: r.Name, DB: db})
	}

	return pkgquery.NewResolver(repos), closer, nil
}

// colorEnabled decides whether ANSI color is on by default: enabled when
// stdout is a terminal, following the teacher's own TTY-gated default
// (internal/progress.ShouldShowProgress uses the identical check).
func colorEnabled() bool {
	return isTerminalStdout()
}
