package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// EnvString returns the trimmed value of key and whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return parsed, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, err
	}
	return parsed, true, nil
}

// EnvDuration parses key as a time.Duration ("2s", "500ms").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, err
	}
	return parsed, true, nil
}

// ApplyEnv overlays MAPHARVEST_* variables and GEMINI_KEY onto c.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("GEMINI_KEY"); ok {
		c.GeminiKey = v
	}
	if v, ok := EnvString("MAPHARVEST_SEARCH_URL"); ok {
		c.SearchURL = v
	}
	if v, ok := EnvString("MAPHARVEST_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("MAPHARVEST_FORMAT"); ok {
		c.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString("MAPHARVEST_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok := EnvString("MAPHARVEST_LLM_MODEL"); ok {
		c.LLMModel = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAPHARVEST_MAX_SCROLL_POLLS", &c.MaxScrollPolls},
		{"MAPHARVEST_SCROLL_STEP", &c.ScrollStep},
		{"MAPHARVEST_CONTACT_PAGES", &c.ContactPages},
		{"MAPHARVEST_CHUNK_SIZE", &c.ChunkSize},
		{"MAPHARVEST_MAX_RETRIES", &c.MaxRetries},
		{"MAPHARVEST_LLM_RETRIES", &c.LLMRetries},
	}
	for _, item := range ints {
		value, ok, err := EnvInt(item.key)
		if err != nil {
			return Invalid(item.key, "%v", err)
		}
		if ok {
			*item.dst = value
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"MAPHARVEST_SETTLE_DELAY", &c.SettleDelay},
		{"MAPHARVEST_PAGE_LOAD_TIMEOUT", &c.PageLoadTimeout},
		{"MAPHARVEST_RESULT_WAIT_TIMEOUT", &c.ResultWaitTimeout},
		{"MAPHARVEST_NESTED_PAGE_TIMEOUT", &c.NestedPageTimeout},
	}
	for _, item := range durations {
		value, ok, err := EnvDuration(item.key)
		if err != nil {
			return Invalid(item.key, "%v", err)
		}
		if ok {
			*item.dst = value
		}
	}

	if v, ok, err := EnvBool("MAPHARVEST_HEADLESS"); err != nil {
		return Invalid("MAPHARVEST_HEADLESS", "%v", err)
	} else if ok {
		c.Headless = v
	}
	if v, ok, err := EnvBool("MAPHARVEST_CAPTURE_PANE"); err != nil {
		return Invalid("MAPHARVEST_CAPTURE_PANE", "%v", err)
	} else if ok {
		c.CapturePaneText = v
	}
	return nil
}
