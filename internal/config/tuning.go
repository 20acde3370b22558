package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Tuning is the optional TOML file with non-secret knobs: logging, endpoints,
// HTTP timeout and the sign-in timings.
type Tuning struct {
	LogLevel      string `toml:"log_level"`
	GraphBaseURL  string `toml:"graph_base_url"`
	HTTPTimeout   string `toml:"http_timeout"`
	PageLoadDelay string `toml:"page_load_delay"`
	ElementWait   string `toml:"element_wait"`
	RedirectWait  string `toml:"redirect_wait"`
	BrowserPath   string `toml:"browser_path"`
	TokenCache    string `toml:"token_cache"`

	// BandwidthLimit caps transfer throughput, e.g. "5MB/s". "0" is unlimited.
	BandwidthLimit string `toml:"bandwidth_limit"`
}

// Timings are the parsed durations of a validated Tuning.
type Timings struct {
	HTTPTimeout   time.Duration
	PageLoadDelay time.Duration
	ElementWait   time.Duration
	RedirectWait  time.Duration
}

// LoadTuning reads and validates a TOML tuning file. Unknown keys are fatal
// with "did you mean?" suggestions.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()

	md, err := toml.DecodeFile(path, t)
	if err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := ValidateTuning(t); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	return t, nil
}

// LoadTuningOrDefault reads the tuning file if it exists, otherwise returns
// the defaults. An empty path also means defaults.
func LoadTuningOrDefault(path string) (*Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultTuning(), nil
	}

	return LoadTuning(path)
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateTuning checks all tuning values and returns every error found.
func ValidateTuning(t *Tuning) error {
	var errs []error

	if !validLogLevels[t.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", t.LogLevel))
	}

	if u, err := url.Parse(t.GraphBaseURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, fmt.Errorf("graph_base_url: must be an absolute http(s) URL, got %q", t.GraphBaseURL))
	}

	errs = append(errs, validatePositiveDuration("http_timeout", t.HTTPTimeout)...)
	errs = append(errs, validatePositiveDuration("page_load_delay", t.PageLoadDelay)...)
	errs = append(errs, validatePositiveDuration("element_wait", t.ElementWait)...)
	errs = append(errs, validatePositiveDuration("redirect_wait", t.RedirectWait)...)

	if _, err := ParseRate(t.BandwidthLimit); err != nil {
		errs = append(errs, fmt.Errorf("bandwidth_limit: %w", err))
	}

	return errors.Join(errs...)
}

func validatePositiveDuration(field, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d <= 0 {
		return []error{fmt.Errorf("%s: must be positive, got %q", field, value)}
	}

	return nil
}

// Timings parses the duration fields. It must only be called on a Tuning
// that passed ValidateTuning; unparsable values fall back to the defaults.
func (t *Tuning) Timings() Timings {
	return Timings{
		HTTPTimeout:   durationOr(t.HTTPTimeout, defaultHTTPTimeout),
		PageLoadDelay: durationOr(t.PageLoadDelay, defaultPageLoadDelay),
		ElementWait:   durationOr(t.ElementWait, defaultElementWait),
		RedirectWait:  durationOr(t.RedirectWait, defaultRedirectWait),
	}
}

// BandwidthBytes returns the bandwidth limit in bytes per second, 0 meaning
// unlimited. Like Timings it expects a validated Tuning.
func (t *Tuning) BandwidthBytes() int64 {
	n, err := ParseRate(t.BandwidthLimit)
	if err != nil {
		return 0
	}

	return n
}

func durationOr(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	d, _ := time.ParseDuration(fallback) //nolint:errcheck // defaults are constant and valid

	return d
}
