package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/daeyeon-lee/cinemoa/internal/filter"
)

// Config holds the client settings.
type Config struct {
	APIBase         string
	ViewerID        int64
	RequestTimeout  time.Duration
	PageSize        int
	ScrollThreshold int
	CompactWidth    int
	HomeSections    []string
	LogFile         string
	LogLevel        string
	MetricsAddr     string
	Invalidate      Invalidate
}

// Invalidate lists the signature families each lifecycle signal marks stale.
type Invalidate struct {
	Foreground     []filter.Family
	HistoryRestore []filter.Family
	MinInterval    time.Duration
}

const (
	defaultConfigPath      = "~/.config/cinemoa/config.toml"
	defaultLogFile         = "~/.local/state/cinemoa/cinemoa.log"
	defaultAPIBase         = "http://127.0.0.1:8080"
	defaultRequestTimeout  = 5 * time.Second
	defaultPageSize        = 10
	defaultScrollThreshold = 3
	defaultCompactWidth    = 100
	defaultLogLevel        = "info"

	envPrefix = "CINEMOA"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBase:         defaultAPIBase,
		RequestTimeout:  defaultRequestTimeout,
		PageSize:        defaultPageSize,
		ScrollThreshold: defaultScrollThreshold,
		CompactWidth:    defaultCompactWidth,
		HomeSections:    []string{"popular", "closing", "recommended"},
		LogFile:         mustExpand(defaultLogFile),
		LogLevel:        defaultLogLevel,
		Invalidate: Invalidate{
			Foreground:     []filter.Family{filter.FamilySearch, filter.FamilyCategory},
			HistoryRestore: filter.Families(),
		},
	}
}

type rawConfig struct {
	APIBase         string   `toml:"api_base"`
	ViewerID        int64    `toml:"viewer_id"`
	RequestTimeout  string   `toml:"request_timeout"`
	PageSize        int      `toml:"page_size"`
	ScrollThreshold *int     `toml:"scroll_threshold"`
	CompactWidth    int      `toml:"compact_width"`
	HomeSections    []string `toml:"home_sections"`
	LogFile         string   `toml:"log_file"`
	LogLevel        string   `toml:"log_level"`
	MetricsAddr     string   `toml:"metrics_addr"`
	Invalidate      struct {
		Foreground     *[]string `toml:"foreground"`
		HistoryRestore *[]string `toml:"history_restore"`
		MinInterval    string    `toml:"min_interval"`
	} `toml:"invalidate"`
}

// envOverrides are read from CINEMOA_* variables. Strings keep "unset"
// distinguishable from zero values.
type envOverrides struct {
	APIBase        string `envconfig:"API_BASE"`
	ViewerID       string `envconfig:"VIEWER_ID"`
	RequestTimeout string `envconfig:"REQUEST_TIMEOUT"`
	LogFile        string `envconfig:"LOG_FILE"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	MetricsAddr    string `envconfig:"METRICS_ADDR"`
}

// Load reads the config file at path (or the default location), falling
// back to defaults when it does not exist, then applies CINEMOA_*
// environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	bytes, err := readFile(resolved)
	if err != nil {
		return Config{}, err
	}
	if bytes != nil {
		var raw rawConfig
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		if err := cfg.apply(raw); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return bytes, nil
}

func (c *Config) apply(raw rawConfig) error {
	if v := strings.TrimSpace(raw.APIBase); v != "" {
		c.APIBase = v
	}
	if raw.ViewerID < 0 {
		return fmt.Errorf("invalid viewer_id %d", raw.ViewerID)
	}
	c.ViewerID = raw.ViewerID

	if v := strings.TrimSpace(raw.RequestTimeout); v != "" {
		d, err := parsePositiveDuration("request_timeout", v)
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	if raw.PageSize > 0 {
		c.PageSize = raw.PageSize
	}
	if raw.ScrollThreshold != nil {
		if *raw.ScrollThreshold < 0 {
			return fmt.Errorf("invalid scroll_threshold %d", *raw.ScrollThreshold)
		}
		c.ScrollThreshold = *raw.ScrollThreshold
	}
	if raw.CompactWidth > 0 {
		c.CompactWidth = raw.CompactWidth
	}
	if sections := trimAll(raw.HomeSections); len(sections) > 0 {
		c.HomeSections = sections
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	c.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if raw.Invalidate.Foreground != nil {
		families, err := parseFamilies("invalidate.foreground", *raw.Invalidate.Foreground)
		if err != nil {
			return err
		}
		c.Invalidate.Foreground = families
	}
	if raw.Invalidate.HistoryRestore != nil {
		families, err := parseFamilies("invalidate.history_restore", *raw.Invalidate.HistoryRestore)
		if err != nil {
			return err
		}
		c.Invalidate.HistoryRestore = families
	}
	if v := strings.TrimSpace(raw.Invalidate.MinInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid invalidate.min_interval %q", v)
		}
		c.Invalidate.MinInterval = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if v := strings.TrimSpace(env.APIBase); v != "" {
		c.APIBase = v
	}
	if v := strings.TrimSpace(env.ViewerID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("invalid %s_VIEWER_ID %q", envPrefix, v)
		}
		c.ViewerID = id
	}
	if v := strings.TrimSpace(env.RequestTimeout); v != "" {
		d, err := parsePositiveDuration(envPrefix+"_REQUEST_TIMEOUT", v)
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	if v := strings.TrimSpace(env.LogFile); v != "" {
		c.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env.MetricsAddr); v != "" {
		c.MetricsAddr = v
	}
	return nil
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return d, nil
}

func parseFamilies(key string, values []string) ([]filter.Family, error) {
	out := make([]filter.Family, 0, len(values))
	for _, v := range values {
		f, err := filter.ParseFamily(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if t := strings.ToLower(strings.TrimSpace(v)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
