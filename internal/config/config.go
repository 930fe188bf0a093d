package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/links"
)

// Config holds panel connection, fetch budgets, output and server settings.
// Precedence: defaults, then the optional YAML file, then PANEL_M3U_* environment.
type Config struct {
	// Connection is the raw panel URL (with username/password query).
	Connection string

	// Fetch
	Workers         int           // episode fan-out pool width
	CategoryTimeout time.Duration // *_categories actions
	StreamsTimeout  time.Duration // bulk stream lists and the get.php export
	DetailTimeout   time.Duration // get_series_info
	DetailRPS       float64       // 0 = unpaced
	HostConcurrency int
	UserAgent       string

	// Output
	LineEnding   string // "lf" | "crlf"
	LiveFormat   string // "ts" | "m3u8" | "hls", any case
	Output       string // "" = derived from host
	IncludeLogos bool
	ExportCron   string

	// Server
	ListenAddr string
	SessionTTL time.Duration

	// Logging
	Debug    bool
	SafeLogs bool
}

const envPrefix = "PANEL_M3U_"

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Workers:         10,
		CategoryTimeout: httpclient.DefaultCategoryTimeout,
		StreamsTimeout:  httpclient.DefaultStreamsTimeout,
		DetailTimeout:   httpclient.DefaultDetailTimeout,
		HostConcurrency: httpclient.DefaultHostConcurrency,
		UserAgent:       httpclient.DefaultUserAgent,
		LineEnding:      "lf",
		LiveFormat:      "ts",
		ListenAddr:      ":8780",
		SessionTTL:      30 * time.Minute,
		SafeLogs:        true,
	}
}

// Load reads config from environment on top of Defaults. Call LoadEnvFile(".env") first to use a .env file.
func Load() *Config {
	c := Defaults()
	c.applyEnv()
	return c
}

// LoadWithFile is Load with a YAML file applied between defaults and environment.
// An empty path behaves like Load.
func LoadWithFile(path string) (*Config, error) {
	c := Defaults()
	if path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

// Budgets returns the fetch timeouts as httpclient budgets.
func (c *Config) Budgets() httpclient.Budgets {
	return httpclient.Budgets{
		Category: c.CategoryTimeout,
		Streams:  c.StreamsTimeout,
		Detail:   c.DetailTimeout,
	}
}

// LineTerminator returns the byte sequence for LineEnding.
func (c *Config) LineTerminator() string {
	if strings.EqualFold(c.LineEnding, "crlf") {
		return "\r\n"
	}
	return "\n"
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%sWORKERS must be >= 1 (got %d)", envPrefix, c.Workers)
	}
	switch strings.ToLower(c.LineEnding) {
	case "lf", "crlf":
	default:
		return fmt.Errorf("%sLINE_ENDING must be lf or crlf (got %q)", envPrefix, c.LineEnding)
	}
	if !links.KnownFormat(c.LiveFormat) {
		return fmt.Errorf("%sLIVE_FORMAT must be ts, m3u8 or hls (got %q)", envPrefix, c.LiveFormat)
	}
	if c.DetailRPS < 0 {
		return fmt.Errorf("%sDETAIL_RPS must be >= 0", envPrefix)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Connection = getEnv(envPrefix+"CONNECTION", c.Connection)
	c.Workers = getEnvInt(envPrefix+"WORKERS", c.Workers)
	c.CategoryTimeout = getEnvDuration(envPrefix+"CATEGORY_TIMEOUT", c.CategoryTimeout)
	c.StreamsTimeout = getEnvDuration(envPrefix+"STREAMS_TIMEOUT", c.StreamsTimeout)
	c.DetailTimeout = getEnvDuration(envPrefix+"DETAIL_TIMEOUT", c.DetailTimeout)
	c.DetailRPS = getEnvFloat(envPrefix+"DETAIL_RPS", c.DetailRPS)
	c.HostConcurrency = getEnvInt(envPrefix+"HOST_CONCURRENCY", c.HostConcurrency)
	c.UserAgent = getEnv(envPrefix+"USER_AGENT", c.UserAgent)
	c.LineEnding = strings.ToLower(getEnv(envPrefix+"LINE_ENDING", c.LineEnding))
	c.LiveFormat = strings.ToLower(getEnv(envPrefix+"LIVE_FORMAT", c.LiveFormat))
	c.Output = getEnv(envPrefix+"OUTPUT", c.Output)
	c.IncludeLogos = getEnvBool(envPrefix+"INCLUDE_LOGOS", c.IncludeLogos)
	c.ExportCron = getEnv(envPrefix+"EXPORT_CRON", c.ExportCron)
	c.ListenAddr = getEnv(envPrefix+"LISTEN_ADDR", c.ListenAddr)
	c.SessionTTL = getEnvDuration(envPrefix+"SESSION_TTL", c.SessionTTL)
	c.Debug = getEnvBool(envPrefix+"DEBUG", c.Debug)
	c.SafeLogs = getEnvBool(envPrefix+"SAFE_LOGS", c.SafeLogs)
}

type fileConfig struct {
	Connection      string  `yaml:"connection"`
	Workers         int     `yaml:"workers"`
	CategoryTimeout string  `yaml:"category_timeout"`
	StreamsTimeout  string  `yaml:"streams_timeout"`
	DetailTimeout   string  `yaml:"detail_timeout"`
	DetailRPS       float64 `yaml:"detail_rps"`
	HostConcurrency int     `yaml:"host_concurrency"`
	UserAgent       string  `yaml:"user_agent"`
	LineEnding      string  `yaml:"line_ending"`
	LiveFormat      string  `yaml:"live_format"`
	Output          string  `yaml:"output"`
	IncludeLogos    *bool   `yaml:"include_logos"`
	ExportCron      string  `yaml:"export_cron"`
	ListenAddr      string  `yaml:"listen_addr"`
	SessionTTL      string  `yaml:"session_ttl"`
	Debug           *bool   `yaml:"debug"`
	SafeLogs        *bool   `yaml:"safe_logs"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	setString(&c.Connection, f.Connection)
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.LineEnding, strings.ToLower(f.LineEnding))
	setString(&c.LiveFormat, strings.ToLower(f.LiveFormat))
	setString(&c.Output, f.Output)
	setString(&c.ExportCron, f.ExportCron)
	setString(&c.ListenAddr, f.ListenAddr)
	if f.Workers > 0 {
		c.Workers = f.Workers
	}
	if f.HostConcurrency > 0 {
		c.HostConcurrency = f.HostConcurrency
	}
	if f.DetailRPS > 0 {
		c.DetailRPS = f.DetailRPS
	}
	for _, d := range []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&c.CategoryTimeout, f.CategoryTimeout, "category_timeout"},
		{&c.StreamsTimeout, f.StreamsTimeout, "streams_timeout"},
		{&c.DetailTimeout, f.DetailTimeout, "detail_timeout"},
		{&c.SessionTTL, f.SessionTTL, "session_ttl"},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.key, err)
		}
		*d.dst = v
	}
	if f.IncludeLogos != nil {
		c.IncludeLogos = *f.IncludeLogos
	}
	if f.Debug != nil {
		c.Debug = *f.Debug
	}
	if f.SafeLogs != nil {
		c.SafeLogs = *f.SafeLogs
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
