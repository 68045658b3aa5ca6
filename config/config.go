package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an invalid setting or request. It is surfaced to
// the caller immediately and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Invalid builds a ConfigurationError.
func Invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Selectors describe the search surface. They are CSS selectors and form a
// fragile contract with markup owned by someone else.
type Selectors struct {
	SearchInput  string
	ResultAnchor string
	ResultFeed   string
	Consent      string
	Address      string
	WebsiteText  string
	WebsiteLink  string
	Phone        string
	// DetailPane is a format string taking the listing name already quoted
	// as a CSS string.
	DetailPane string
}

// DefaultSelectors returns the selectors for the Google Maps surface.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchInput:  `input#searchboxinput`,
		ResultAnchor: `a[href*="https://www.google.com/maps/place"]`,
		ResultFeed:   `div[role="feed"]`,
		Consent:      `form[action="https://consent.google.com/save"] button`,
		Address:      `button[data-item-id="address"] [class*="fontBodyMedium"]`,
		WebsiteText:  `a[data-item-id="authority"] [class*="fontBodyMedium"]`,
		WebsiteLink:  `a[data-item-id="authority"]`,
		Phone:        `button[data-item-id*="phone:tel:"] [class*="fontBodyMedium"]`,
		DetailPane:   `div[role="main"][aria-label=%s]`,
	}
}

// Config holds harvester configuration.
type Config struct {
	SearchURL string
	Selectors Selectors
	Headless  bool
	UserAgent string

	PageLoadTimeout   time.Duration
	ConsentTimeout    time.Duration
	ResultWaitTimeout time.Duration
	SettleDelay       time.Duration
	NestedPageTimeout time.Duration
	ScrollStep        int
	MaxScrollPolls    int
	CapturePaneText   bool

	ContactPages     int
	ContactCacheSize int
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	RespectRobotsTxt bool

	ChunkSize  int
	GeminiKey  string
	LLMModel   string
	LLMTimeout time.Duration
	LLMRetries int

	OutputFile         string
	OutputFormat       string // csv, json, or dual
	Workers            int
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns defaults matching the timings the search surface tolerates.
func DefaultConfig() *Config {
	return &Config{
		SearchURL: "https://www.google.com/maps",
		Selectors: DefaultSelectors(),
		Headless:  true,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		PageLoadTimeout:   30 * time.Second,
		ConsentTimeout:    5 * time.Second,
		ResultWaitTimeout: 10 * time.Second,
		SettleDelay:       2 * time.Second,
		NestedPageTimeout: 30 * time.Second,
		ScrollStep:        10000,
		MaxScrollPolls:    50,
		CapturePaneText:   false,

		ContactPages:     3,
		ContactCacheSize: 256,
		Timeout:          10 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     200 * time.Millisecond,
		RetryBackoffMax:  2 * time.Second,
		RespectRobotsTxt: false,

		ChunkSize:  6000,
		LLMModel:   "gemini-1.5-flash",
		LLMTimeout: 60 * time.Second,
		LLMRetries: 2,

		OutputFile:         "output/businesses.csv",
		OutputFormat:       "csv",
		Workers:            1,
		PipelineBufferSize: 256,
		BatchSize:          32,
		DedupeMaxSize:      10000,
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return Invalid("search URL", "cannot be empty")
	}
	parsedURL, err := url.Parse(c.SearchURL)
	if err != nil {
		return Invalid("search URL", "%v", err)
	}
	if parsedURL.Host == "" {
		return Invalid("search URL", "must include a host")
	}
	if c.Selectors.SearchInput == "" || c.Selectors.ResultAnchor == "" {
		return Invalid("selectors", "search input and result anchor are required")
	}

	if c.PageLoadTimeout <= 0 {
		return Invalid("page load timeout", "must be positive")
	}
	if c.ConsentTimeout <= 0 {
		return Invalid("consent timeout", "must be positive")
	}
	if c.ResultWaitTimeout <= 0 {
		return Invalid("result wait timeout", "must be positive")
	}
	if c.NestedPageTimeout <= 0 {
		return Invalid("nested page timeout", "must be positive")
	}
	if c.SettleDelay < 0 {
		return Invalid("settle delay", "cannot be negative")
	}
	if c.ScrollStep <= 0 {
		return Invalid("scroll step", "must be positive")
	}
	if c.MaxScrollPolls <= 0 {
		return Invalid("max scroll polls", "must be positive")
	}

	if c.ContactPages < 0 {
		return Invalid("contact pages", "cannot be negative")
	}
	if c.Timeout <= 0 {
		return Invalid("timeout", "must be positive")
	}
	if c.MaxRetries < 0 {
		return Invalid("max retries", "cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return Invalid("retry backoff", "cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return Invalid("retry backoff max", "cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return Invalid("retry backoff", "%s cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}

	if c.ChunkSize <= 0 {
		return Invalid("chunk size", "must be a positive integer, got %d", c.ChunkSize)
	}
	if c.LLMModel == "" {
		return Invalid("llm model", "cannot be empty")
	}
	if c.LLMRetries < 0 {
		return Invalid("llm retries", "cannot be negative")
	}

	if c.OutputFile == "" {
		return Invalid("output file", "cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return Invalid("output format", "must be csv, json, or dual")
	}
	if c.Workers <= 0 {
		return Invalid("workers", "must be positive")
	}
	if c.UserAgent == "" {
		return Invalid("user agent", "cannot be empty")
	}

	return nil
}
