package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teammeet/schedulesync/internal/config"
	"github.com/teammeet/schedulesync/internal/connector"
	"github.com/teammeet/schedulesync/internal/registry"
	"github.com/teammeet/schedulesync/internal/runner"
	"github.com/teammeet/schedulesync/internal/store"
)

var (
	cfgFile           string
	databaseDSN       string
	production        bool
	userAgent         string
	logLevel          string
	maxAttempt        int
	verifyTimeout     time.Duration
	fullTimeout       time.Duration
	maxRedirects      int
	workerConcurrency int
	pollInterval      time.Duration
	syncWindowPast    time.Duration
	syncWindowFuture  time.Duration
	orgID             string
)

var rootCmd = &cobra.Command{
	Use:   "schedulesync",
	Short: "Multi-tenant schedule ingestion core.",
	Long: `schedulesync fetches, classifies, and normalizes event schedules
published on third-party vendor sites, reconciling them against an
organization's stored calendar of events.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&databaseDSN, "database-dsn", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().BoolVar(&production, "production", false, "disable the allowlist test override")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string sent with every fetch")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "zerolog level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&maxAttempt, "max-attempt", 0, "store retry attempt budget")
	rootCmd.PersistentFlags().DurationVar(&verifyTimeout, "verify-timeout", 0, "verify-mode fetch timeout stored in Config (the Safe Fetcher does not read it and uses its built-in 8s)")
	rootCmd.PersistentFlags().DurationVar(&fullTimeout, "full-timeout", 0, "full-mode fetch timeout stored in Config (the Safe Fetcher does not read it and uses its built-in 12s)")
	rootCmd.PersistentFlags().IntVar(&maxRedirects, "max-redirects", 0, "maximum redirects the Safe Fetcher follows")
	rootCmd.PersistentFlags().IntVar(&workerConcurrency, "worker-concurrency", 0, "daemon worker pool size")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 0, "daemon poll interval")
	rootCmd.PersistentFlags().DurationVar(&syncWindowPast, "sync-window-past", 0, "how far back a sync window extends")
	rootCmd.PersistentFlags().DurationVar(&syncWindowFuture, "sync-window-future", 0, "how far forward a sync window extends")
	rootCmd.PersistentFlags().StringVar(&orgID, "org-id", "", "organization id for preview/sync/enroll commands")

	rootCmd.AddCommand(previewCmd, syncCmd, enrollCmd, migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

// InitConfig reads a config file if given, else builds Config from flags.
// Mirrors the With*() override-only-when-set idiom: a flag's zero value
// never clobbers a config-file or default setting.
func InitConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.WithConfigFile(cfgFile)
	}

	builder := config.WithDefault()
	if databaseDSN != "" {
		builder = builder.WithDatabaseDSN(databaseDSN)
	}
	if production {
		builder = builder.WithProduction(production)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if logLevel != "" {
		builder = builder.WithLogLevel(logLevel)
	}
	if maxAttempt > 0 {
		builder = builder.WithMaxAttempt(maxAttempt)
	}
	if verifyTimeout > 0 {
		builder = builder.WithVerifyTimeout(verifyTimeout)
	}
	if fullTimeout > 0 {
		builder = builder.WithFullTimeout(fullTimeout)
	}
	if maxRedirects > 0 {
		builder = builder.WithMaxRedirects(maxRedirects)
	}
	if workerConcurrency > 0 {
		builder = builder.WithWorkerConcurrency(workerConcurrency)
	}
	if pollInterval > 0 {
		builder = builder.WithPollInterval(pollInterval)
	}
	if syncWindowPast > 0 {
		builder = builder.WithSyncWindowPast(syncWindowPast)
	}
	if syncWindowFuture > 0 {
		builder = builder.WithSyncWindowFuture(syncWindowFuture)
	}

	return builder.Build()
}

func ResetFlags() {
	cfgFile = ""
	databaseDSN = ""
	production = false
	userAgent = ""
	logLevel = ""
	maxAttempt = 0
	verifyTimeout = 0
	fullTimeout = 0
	maxRedirects = 0
	workerConcurrency = 0
	pollInterval = 0
	syncWindowPast = 0
	syncWindowFuture = 0
	orgID = ""
}

var previewCmd = &cobra.Command{
	Use:   "preview <url>",
	Short: "Detect a connector for a URL and show the events it would import.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfig()
		if err != nil {
			return err
		}
		if orgID == "" {
			return fmt.Errorf("--org-id is required")
		}

		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}

		detection, err := a.registry.DetectConnector(ctx, args[0], registry.DetectInput{OrgID: &orgID})
		if err != nil {
			return err
		}

		result, err := detection.Connector.Preview(ctx, connector.PreviewInput{URL: args[0], OrgID: orgID})
		if err != nil {
			return err
		}

		fmt.Printf("Vendor: %s (confidence %.2f, %s)\n", detection.Vendor, detection.Confidence, detection.Reason)
		if result.Title != nil {
			fmt.Printf("Title: %s\n", *result.Title)
		}
		fmt.Printf("Events (%d):\n", len(result.Events))
		for _, e := range result.Events {
			fmt.Printf("  %s  %s -> %s\n", e.ExternalUID, e.StartAt.Format(time.RFC3339), e.EndAt.Format(time.RFC3339))
		}
		return nil
	},
}

var enrollCmd = &cobra.Command{
	Use:   "enroll <url>",
	Short: "Verify a host and enroll it onto the allowlist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}

		result, err := a.fetcher.FetchURLSafe(ctx, args[0], fetcherOptionsForEnroll())
		if err != nil {
			return err
		}
		fmt.Printf("Fetched %s (status %d); host enrollment is recorded as a side effect of the fetch.\n", result.FinalURL, result.Status)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <source-id>",
	Short: "Run a single source through its connector and persist the result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}

		source, err := a.store.GetScheduleSource(ctx, args[0])
		if err != nil {
			return err
		}

		window := store.SyncWindow{
			From: time.Now().Add(-cfg.SyncWindowPast()),
			To:   time.Now().Add(cfg.SyncWindowFuture()),
		}

		result, err := runner.SyncScheduleSource(ctx, a.store, a.connectors, runner.Input{
			Source: *source,
			Window: window,
		})
		if err != nil {
			return err
		}

		fmt.Printf("ok=%t imported=%d updated=%d cancelled=%d\n", result.Ok, result.Imported, result.Updated, result.Cancelled)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the schedulesync schema.",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfig()
		if err != nil {
			return err
		}
		return runMigrateUp(cfg, newLogger(cfg.LogLevel()))
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back a single migration step.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfig()
		if err != nil {
			return err
		}
		return runMigrateDown(cfg)
	},
}
