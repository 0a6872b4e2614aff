package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds every tunable of the schedulesync core: fetch limits, the
// store's retry/backoff policy, allowlist enforcement mode, storage
// connection info, and the daemon's worker pool sizing. Built through the
// WithDefault/With*/Build chain so partial overrides (CLI flags, a config
// file) only ever touch the field they name.
type Config struct {
	//===============
	// Fetch (internal/fetcher, spec §4.A)
	//===============
	// The timeouts and max-bytes caps are stored and validated here but are
	// not passed to the fetcher, which applies its own per-mode defaults;
	// maxRedirects, userAgent and acceptHeader are passed to fetcher.New.
	verifyTimeout  time.Duration
	verifyMaxBytes int64
	fullTimeout    time.Duration
	fullMaxBytes   int64
	maxRedirects   int
	userAgent      string
	acceptHeader   string

	//===============
	// Store retry (pkg/retry, used only for transient store errors —
	// never for the fetch path, which is single-attempt per spec §7)
	//===============
	maxAttempt             int
	backoffInitialDuration time.Duration
	backoffMultiplier      float64
	backoffMaxDuration     time.Duration

	//===============
	// Allowlist (internal/allowlist, spec §4.B)
	//===============
	// production disables the test override entirely, regardless of
	// what testOverride holds.
	production bool
	// testOverride maps a host pattern to a forced status ("active" or
	// "denied"), consulted only when production is false.
	testOverride map[string]string

	//===============
	// Storage (internal/store/pgstore)
	//===============
	databaseDSN string

	//===============
	// Logging
	//===============
	logLevel string

	//===============
	// Daemon (cmd/schedulesyncd)
	//===============
	workerConcurrency int
	pollInterval      time.Duration
	syncWindowPast    time.Duration
	syncWindowFuture  time.Duration
}

type configDTO struct {
	VerifyTimeout          time.Duration     `json:"verifyTimeout,omitempty"`
	VerifyMaxBytes         int64             `json:"verifyMaxBytes,omitempty"`
	FullTimeout            time.Duration     `json:"fullTimeout,omitempty"`
	FullMaxBytes           int64             `json:"fullMaxBytes,omitempty"`
	MaxRedirects           int               `json:"maxRedirects,omitempty"`
	UserAgent              string            `json:"userAgent,omitempty"`
	AcceptHeader           string            `json:"acceptHeader,omitempty"`
	MaxAttempt             int               `json:"maxAttempt,omitempty"`
	BackoffInitialDuration time.Duration     `json:"backoffInitialDuration,omitempty"`
	BackoffMultiplier      float64           `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration     time.Duration     `json:"backoffMaxDuration,omitempty"`
	Production             bool              `json:"production,omitempty"`
	TestOverride           map[string]string `json:"testOverride,omitempty"`
	DatabaseDSN            string            `json:"databaseDsn,omitempty"`
	LogLevel               string            `json:"logLevel,omitempty"`
	WorkerConcurrency      int               `json:"workerConcurrency,omitempty"`
	PollInterval           time.Duration     `json:"pollInterval,omitempty"`
	SyncWindowPast         time.Duration     `json:"syncWindowPast,omitempty"`
	SyncWindowFuture       time.Duration     `json:"syncWindowFuture,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg, err := WithDefault().Build()
	if err != nil {
		return Config{}, err
	}

	if dto.VerifyTimeout != 0 {
		cfg.verifyTimeout = dto.VerifyTimeout
	}
	if dto.VerifyMaxBytes != 0 {
		cfg.verifyMaxBytes = dto.VerifyMaxBytes
	}
	if dto.FullTimeout != 0 {
		cfg.fullTimeout = dto.FullTimeout
	}
	if dto.FullMaxBytes != 0 {
		cfg.fullMaxBytes = dto.FullMaxBytes
	}
	if dto.MaxRedirects != 0 {
		cfg.maxRedirects = dto.MaxRedirects
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	if dto.AcceptHeader != "" {
		cfg.acceptHeader = dto.AcceptHeader
	}
	if dto.MaxAttempt != 0 {
		cfg.maxAttempt = dto.MaxAttempt
	}
	if dto.BackoffInitialDuration != 0 {
		cfg.backoffInitialDuration = dto.BackoffInitialDuration
	}
	if dto.BackoffMultiplier != 0 {
		cfg.backoffMultiplier = dto.BackoffMultiplier
	}
	if dto.BackoffMaxDuration != 0 {
		cfg.backoffMaxDuration = dto.BackoffMaxDuration
	}
	// Production is a boolean; the DTO value is used as-is since its
	// zero value (false) is also the safe default.
	cfg.production = dto.Production
	if len(dto.TestOverride) > 0 {
		cfg.testOverride = dto.TestOverride
	}
	if dto.DatabaseDSN != "" {
		cfg.databaseDSN = dto.DatabaseDSN
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.WorkerConcurrency != 0 {
		cfg.workerConcurrency = dto.WorkerConcurrency
	}
	if dto.PollInterval != 0 {
		cfg.pollInterval = dto.PollInterval
	}
	if dto.SyncWindowPast != 0 {
		cfg.syncWindowPast = dto.SyncWindowPast
	}
	if dto.SyncWindowFuture != 0 {
		cfg.syncWindowFuture = dto.SyncWindowFuture
	}

	return cfg, nil
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto configDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

// WithDefault creates a Config seeded with the defaults from spec §4.A/§7:
// 8s/256KiB verify fetches, 12s/5MiB full fetches, 2 redirects, a 5-attempt
// store retry policy, and a non-production allowlist (test override active).
func WithDefault() *Config {
	return &Config{
		verifyTimeout:  8 * time.Second,
		verifyMaxBytes: 256 * 1024,
		fullTimeout:    12 * time.Second,
		fullMaxBytes:   5 * 1024 * 1024,
		maxRedirects:   2,
		userAgent:      "TeamMeet-ScheduleSync/1.0",
		acceptHeader:   "text/html,application/json,text/calendar,text/plain",

		maxAttempt:             5,
		backoffInitialDuration: 100 * time.Millisecond,
		backoffMultiplier:      2.0,
		backoffMaxDuration:     5 * time.Second,

		production:   false,
		testOverride: map[string]string{},

		databaseDSN: "",
		logLevel:    "info",

		workerConcurrency: 4,
		pollInterval:      5 * time.Minute,
		syncWindowPast:    0,
		syncWindowFuture:  90 * 24 * time.Hour,
	}
}

func (c *Config) WithVerifyTimeout(d time.Duration) *Config {
	c.verifyTimeout = d
	return c
}

func (c *Config) WithVerifyMaxBytes(n int64) *Config {
	c.verifyMaxBytes = n
	return c
}

func (c *Config) WithFullTimeout(d time.Duration) *Config {
	c.fullTimeout = d
	return c
}

func (c *Config) WithFullMaxBytes(n int64) *Config {
	c.fullMaxBytes = n
	return c
}

func (c *Config) WithMaxRedirects(n int) *Config {
	c.maxRedirects = n
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithAcceptHeader(accept string) *Config {
	c.acceptHeader = accept
	return c
}

func (c *Config) WithMaxAttempt(n int) *Config {
	c.maxAttempt = n
	return c
}

func (c *Config) WithBackoffInitialDuration(d time.Duration) *Config {
	c.backoffInitialDuration = d
	return c
}

func (c *Config) WithBackoffMultiplier(m float64) *Config {
	c.backoffMultiplier = m
	return c
}

func (c *Config) WithBackoffMaxDuration(d time.Duration) *Config {
	c.backoffMaxDuration = d
	return c
}

func (c *Config) WithProduction(production bool) *Config {
	c.production = production
	return c
}

func (c *Config) WithTestOverride(override map[string]string) *Config {
	c.testOverride = override
	return c
}

func (c *Config) WithDatabaseDSN(dsn string) *Config {
	c.databaseDSN = dsn
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithWorkerConcurrency(n int) *Config {
	c.workerConcurrency = n
	return c
}

func (c *Config) WithPollInterval(d time.Duration) *Config {
	c.pollInterval = d
	return c
}

func (c *Config) WithSyncWindowPast(d time.Duration) *Config {
	c.syncWindowPast = d
	return c
}

func (c *Config) WithSyncWindowFuture(d time.Duration) *Config {
	c.syncWindowFuture = d
	return c
}

// Build validates the accumulated fields and returns the finished Config.
// A non-production Config with no test override is valid: it simply means
// the override never matches anything.
func (c *Config) Build() (Config, error) {
	if c.maxAttempt < 1 {
		return Config{}, fmt.Errorf("%w: maxAttempt must be >= 1", ErrInvalidConfig)
	}
	if c.verifyTimeout <= 0 || c.fullTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: fetch timeouts must be positive", ErrInvalidConfig)
	}
	if c.production && len(c.testOverride) > 0 {
		return Config{}, fmt.Errorf("%w: test override is not permitted in production", ErrInvalidConfig)
	}
	if c.testOverride == nil {
		c.testOverride = map[string]string{}
	}
	return *c, nil
}

func (c Config) VerifyTimeout() time.Duration { return c.verifyTimeout }
func (c Config) VerifyMaxBytes() int64        { return c.verifyMaxBytes }
func (c Config) FullTimeout() time.Duration   { return c.fullTimeout }
func (c Config) FullMaxBytes() int64          { return c.fullMaxBytes }
func (c Config) MaxRedirects() int            { return c.maxRedirects }
func (c Config) UserAgent() string            { return c.userAgent }
func (c Config) AcceptHeader() string         { return c.acceptHeader }

func (c Config) MaxAttempt() int                     { return c.maxAttempt }
func (c Config) BackoffInitialDuration() time.Duration { return c.backoffInitialDuration }
func (c Config) BackoffMultiplier() float64          { return c.backoffMultiplier }
func (c Config) BackoffMaxDuration() time.Duration   { return c.backoffMaxDuration }

func (c Config) Production() bool { return c.production }

func (c Config) TestOverride() map[string]string {
	override := make(map[string]string, len(c.testOverride))
	for k, v := range c.testOverride {
		override[k] = v
	}
	return override
}

func (c Config) DatabaseDSN() string { return c.databaseDSN }
func (c Config) LogLevel() string    { return c.logLevel }

func (c Config) WorkerConcurrency() int       { return c.workerConcurrency }
func (c Config) PollInterval() time.Duration  { return c.pollInterval }
func (c Config) SyncWindowPast() time.Duration   { return c.syncWindowPast }
func (c Config) SyncWindowFuture() time.Duration { return c.syncWindowFuture }
