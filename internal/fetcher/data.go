package fetcher

import "time"

type Mode string

const (
	ModeVerify Mode = "verify"
	ModeFull   Mode = "full"
)

type AllowlistMode string

const (
	AllowlistEnforce AllowlistMode = "enforce"
	AllowlistSkip    AllowlistMode = "skip"
)

// Options mirrors fetchUrlSafe's opts parameter. Zero-value TimeoutMs and
// MaxBytes are filled in from Mode's defaults by applyDefaults.
type Options struct {
	Mode          Mode
	TimeoutMs     int
	MaxBytes      int64
	Headers       map[string]string
	OrgID         *string
	UserID        *string
	VendorID      *string
	AllowlistMode AllowlistMode
}

func applyDefaults(opts Options) Options {
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	if opts.TimeoutMs == 0 {
		if opts.Mode == ModeVerify {
			opts.TimeoutMs = 8_000
		} else {
			opts.TimeoutMs = 12_000
		}
	}
	if opts.MaxBytes == 0 {
		if opts.Mode == ModeVerify {
			opts.MaxBytes = 256 * 1024
		} else {
			opts.MaxBytes = 5 * 1024 * 1024
		}
	}
	if opts.AllowlistMode == "" {
		opts.AllowlistMode = AllowlistEnforce
	}
	return opts
}

// Result is the successful outcome of a fetch.
type Result struct {
	FinalURL  string
	Status    int
	Headers   map[string]string
	Text      string
	FetchedAt time.Time
}
