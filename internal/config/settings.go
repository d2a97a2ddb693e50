package config

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/handiism/lrc-downloader/internal/audio"
	lrchttp "github.com/handiism/lrc-downloader/internal/http"
	ioutils "github.com/handiism/lrc-downloader/internal/io"
	"github.com/handiism/lrc-downloader/internal/lyrics"
)

//go:embed config.example.toml
var exampleConf []byte

// Settings holds all configuration options.
//
// A Settings value is built once at startup and handed to the download
// manager by value; nothing reads configuration from globals.
type Settings struct {
	// Library
	LibraryPath      string   `toml:"library_path"`
	Extensions       []string `toml:"extensions"`
	SidecarExtension string   `toml:"sidecar_extension"`

	// Concurrency
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`
	MaxPendingTasks       int `toml:"max_pending_tasks"`

	// Lyrics site
	BaseURL        string `toml:"base_url"`
	SearchPath     string `toml:"search_path"`
	ResolverLayout string `toml:"resolver_layout"` // three-hop, four-hop
	SearchStrategy string `toml:"search_strategy"` // first, closest

	// HTTP
	UserAgent             string  `toml:"user_agent"`
	AcceptEncoding        string  `toml:"accept_encoding"`
	PageEncoding          string  `toml:"page_encoding"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`

	// Retry
	DownloadMaxRetries    int     `toml:"download_max_retries"`
	DownloadRetryCooldown float64 `toml:"download_retry_cooldown"`
	DownloadRetryExponent float64 `toml:"download_retry_exponent"`

	// Miss cache
	MissCachePath    string `toml:"miss_cache_path"`
	MissCacheTTLDays int    `toml:"miss_cache_ttl_days"`

	// Missing-lyrics report
	ReportPath   string `toml:"report_path"`
	ReportFormat string `toml:"report_format"` // m3u, pls, wpl
	M3UExtended  bool   `toml:"m3u_extended"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		SidecarExtension: ".lrc",

		MaxConcurrentRequests: 10,
		MaxPendingTasks:       64,

		BaseURL:        "https://www.lyricsify.com",
		SearchPath:     lyrics.DefaultSearchPath,
		ResolverLayout: lyrics.LayoutThreeHop,
		SearchStrategy: "first",

		UserAgent:             lrchttp.DefaultUserAgent,
		AcceptEncoding:        lrchttp.DefaultAcceptEncoding,
		PageEncoding:          "iso-8859-1",
		RequestTimeoutSeconds: 60,

		DownloadMaxRetries:    0,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,

		MissCacheTTLDays: 7,

		ReportFormat: "m3u",
		M3UExtended:  true,
	}
}

// Load reads settings from a TOML file. Keys absent from the file keep their
// default values; a missing file yields DefaultSettings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings := DefaultSettings()
	md, err := toml.Decode(string(data), settings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	return settings, nil
}

// Save writes settings to a TOML file, creating parent directories.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return ioutils.WriteFileAtomic(context.Background(), path, buf.Bytes(), 0644)
}

// CreateConfigFile writes the commented example configuration to path. It
// refuses to overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate reports every invalid setting, joined into one error.
func (s *Settings) Validate() error {
	var errs []error

	if s.MaxConcurrentRequests < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_requests must be positive, got %d", s.MaxConcurrentRequests))
	}
	if s.MaxPendingTasks < 1 {
		errs = append(errs, fmt.Errorf("max_pending_tasks must be positive, got %d", s.MaxPendingTasks))
	}
	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q is not an absolute URL", s.BaseURL))
	}
	if _, err := lyrics.NewLayout(s.ResolverLayout, s.SearchPath, nil); err != nil {
		errs = append(errs, err)
	}
	if _, err := lyrics.ParseStrategy(s.SearchStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := lrchttp.LookupEncoding(s.PageEncoding); err != nil {
		errs = append(errs, err)
	}
	if _, err := audio.ParsePlaylistFormat(s.ReportFormat); err != nil {
		errs = append(errs, err)
	}
	if !strings.HasPrefix(s.SidecarExtension, ".") {
		errs = append(errs, fmt.Errorf("sidecar_extension must start with a dot, got %q", s.SidecarExtension))
	}
	if s.RequestTimeoutSeconds < 0 || s.DownloadMaxRetries < 0 || s.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("timeouts, retries and rate limits cannot be negative"))
	}
	if s.DownloadMaxRetries > 0 && s.DownloadRetryExponent < 1 {
		errs = append(errs, fmt.Errorf("download_retry_exponent must be at least 1, got %g", s.DownloadRetryExponent))
	}

	return errors.Join(errs...)
}

// RequestTimeout returns the per-request timeout; zero means none.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// MissCacheTTL returns how long a recorded miss suppresses new lookups.
func (s *Settings) MissCacheTTL() time.Duration {
	return time.Duration(s.MissCacheTTLDays) * 24 * time.Hour
}

// RetryDelay returns the wait before retry number try (starting at 0):
// cooldown * exponent^try seconds.
func (s *Settings) RetryDelay(try int) time.Duration {
	cooldown := s.DownloadRetryCooldown * math.Pow(s.DownloadRetryExponent, float64(try))
	return time.Duration(cooldown * float64(time.Second))
}
