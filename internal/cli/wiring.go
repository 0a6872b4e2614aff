// Package cli assembles the schedulesync dependency graph from a
// config.Config and exposes it as cobra commands, grounded on
// docs-crawler's internal/cli root command: package-level flag vars, a
// WithDefault().With*()...Build() chain, and an Execute() entry point.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/teammeet/schedulesync/internal/allowlist"
	"github.com/teammeet/schedulesync/internal/config"
	"github.com/teammeet/schedulesync/internal/connector"
	"github.com/teammeet/schedulesync/internal/fetcher"
	"github.com/teammeet/schedulesync/internal/metadata"
	"github.com/teammeet/schedulesync/internal/registry"
	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/internal/store/migrations"
	"github.com/teammeet/schedulesync/internal/store/pgstore"
	"github.com/teammeet/schedulesync/internal/verifier"
	"github.com/teammeet/schedulesync/pkg/retry"
	"github.com/teammeet/schedulesync/pkg/timeutil"
)

// app bundles every wired component a subcommand needs. connectors is
// keyed by vendor id for the Source Runner, which already knows which
// vendor a source belongs to; registry is used instead wherever a vendor
// still needs to be detected from a bare URL (preview).
type app struct {
	store      store.Store
	fetcher    *fetcher.Fetcher
	registry   *registry.Registry
	connectors map[string]connector.Connector
	log        zerolog.Logger
}

// App is the exported view of the wired dependency graph, for callers
// outside this package (cmd/schedulesyncd's worker loop).
type App struct {
	Store      store.Store
	Connectors map[string]connector.Connector
	Log        zerolog.Logger
}

// BuildApp wires the dependency graph from cfg and returns the surface
// the daemon worker loop needs.
func BuildApp(ctx context.Context, cfg config.Config) (*App, error) {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &App{Store: a.store, Connectors: a.connectors, Log: a.log}, nil
}

// testOverrideToAllowlistOverride adapts config.Config's flat host-pattern
// -> status map into the Allow/Deny pattern lists allowlist.Override
// expects. Any status other than "denied" is treated as an allow entry,
// matching the Allowlist Engine's own closed StatusDenied/otherwise split.
func testOverrideToAllowlistOverride(testOverride map[string]string) *allowlist.Override {
	override := &allowlist.Override{}
	for pattern, status := range testOverride {
		if status == "denied" {
			override.Deny = append(override.Deny, pattern)
		} else {
			override.Allow = append(override.Allow, pattern)
		}
	}
	return override
}

// retryParamFromConfig builds the pkg/retry policy the store uses for
// transient errors. Config carries no jitter/seed knobs of its own, so
// both default to zero: deterministic backoff, no randomization.
func retryParamFromConfig(cfg config.Config) retry.RetryParam {
	backoff := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)
	return retry.NewRetryParam(cfg.BackoffInitialDuration(), 0, 0, cfg.MaxAttempt(), backoff)
}

func newLogger(level string) zerolog.Logger {
	zlevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		zlevel = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zlevel)
}

// buildApp wires every component the CLI subcommands need, in the order
// each depends on the last: store, then the allowlist/fetcher/verifier
// fetch path, then every connector, then the registry that picks among
// them.
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := newLogger(cfg.LogLevel())

	s, err := buildStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	allowlistEngine := allowlist.New(s, testOverrideToAllowlistOverride(cfg.TestOverride()), cfg.Production())

	metadataSink := metadata.NewRecorder(log, "schedulesync")

	v := verifier.New(nil, s) // fetcher wired in below once constructed; see note on circular dependency
	f := fetcher.New(allowlistEngine, v, metadataSink, cfg.UserAgent(), cfg.AcceptHeader(), cfg.MaxRedirects())
	v.SetFetcher(f)

	ics := connector.NewICS(f, s, log)
	calendar := connector.NewCalendar(noAccessToken, nil, s, log)
	vendorA := connector.NewVendorA(f, allowlistEngine, s, log)
	vendorB := connector.NewVendorB(f, allowlistEngine, ics, s, log)
	generic := connector.NewGeneric(f, allowlistEngine, s, log)

	others := map[string]connector.Connector{
		connector.VendorA:       vendorA,
		connector.VendorB:       vendorB,
		connector.VendorGeneric: generic,
	}
	reg := registry.New(f, calendar, ics, others)

	connectors := map[string]connector.Connector{
		connector.VendorICS:      ics,
		connector.VendorCalendar: calendar,
		connector.VendorA:        vendorA,
		connector.VendorB:        vendorB,
		connector.VendorGeneric:  generic,
	}

	return &app{store: s, fetcher: f, registry: reg, connectors: connectors, log: log}, nil
}

// noAccessToken is the calendar connector's token source when no OAuth
// integration is configured; every Preview/Sync against a google:// URL
// fails fast with this instead of panicking on a nil func value.
func noAccessToken(ctx context.Context, userID string) (string, error) {
	return "", fmt.Errorf("calendar connector: no access token provider configured")
}

func buildStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, error) {
	dsn := cfg.DatabaseDSN()
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}
	return pgstore.New(ctx, dsn, log, retryParamFromConfig(cfg))
}

// openSQLDB opens a database/sql handle against the same DSN pgstore
// pools separately, purely for golang-migrate's postgres driver, which
// needs a *sql.DB rather than a pgxpool.Pool.
func openSQLDB(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func runMigrateUp(cfg config.Config, log zerolog.Logger) error {
	db, err := openSQLDB(cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Up(db, log)
}

func runMigrateDown(cfg config.Config) error {
	db, err := openSQLDB(cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Down(db)
}

// fetcherOptionsForEnroll builds the Options the enroll command fetches
// with: verify mode, allowlist enforced so a denied host actually runs
// through VerifyAndEnroll instead of being skipped.
func fetcherOptionsForEnroll() fetcher.Options {
	return fetcher.Options{
		Mode:          fetcher.ModeVerify,
		AllowlistMode: fetcher.AllowlistEnforce,
		OrgID:         &orgID,
	}
}
