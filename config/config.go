package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jonwraymond/motapi/cache"
	"github.com/jonwraymond/motapi/client"
	"github.com/jonwraymond/motapi/observe"
	"github.com/jonwraymond/motapi/resilience"
	"github.com/jonwraymond/motapi/secret"
)

// Config is the complete client configuration.
type Config struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	APIKey       string `mapstructure:"api_key"`

	TokenURL string `mapstructure:"token_url"`
	BaseURL  string `mapstructure:"base_url"`
	Scope    string `mapstructure:"scope"`

	TokenTimeout   time.Duration `mapstructure:"token_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Limits  LimitsConfig  `mapstructure:"limits"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Events  EventsConfig  `mapstructure:"events"`
	Observe ObserveConfig `mapstructure:"observe"`

	// Secrets holds per-provider settings, e.g. secrets.file.dir.
	Secrets map[string]map[string]any `mapstructure:"secrets"`
}

// LimitsConfig holds the admission limits.
type LimitsConfig struct {
	DailyQuota    int           `mapstructure:"daily_quota"`
	BurstCapacity int           `mapstructure:"burst_capacity"`
	RPSLimit      int           `mapstructure:"rps_limit"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// CacheConfig configures the lookup cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxTTL  time.Duration `mapstructure:"max_ttl"`
}

// EventsConfig configures lifecycle event delivery.
type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// ObserveConfig configures telemetry.
type ObserveConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	Tracing     struct {
		Enabled   bool    `mapstructure:"enabled"`
		Exporter  string  `mapstructure:"exporter"`
		SamplePct float64 `mapstructure:"sample_pct"`
	} `mapstructure:"tracing"`
	Metrics struct {
		Enabled  bool   `mapstructure:"enabled"`
		Exporter string `mapstructure:"exporter"`
	} `mapstructure:"metrics"`
	Logging struct {
		Enabled bool   `mapstructure:"enabled"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"logging"`
}

// Validate checks that the configuration can build a working client.
// Run it after Resolve so that secret references have been replaced.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"api_key":       c.APIKey,
		"scope":         c.Scope,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	for name, raw := range map[string]string{"token_url": c.TokenURL, "base_url": c.BaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q", ErrInvalidURL, name, raw)
		}
	}

	switch {
	case c.Limits.DailyQuota < 1:
		return fmt.Errorf("%w: daily_quota must be at least 1", ErrInvalidLimit)
	case c.Limits.BurstCapacity < 2:
		// The burst allowance never drops below capacity-1.
		return fmt.Errorf("%w: burst_capacity must be at least 2", ErrInvalidLimit)
	case c.Limits.RPSLimit < 1:
		return fmt.Errorf("%w: rps_limit must be at least 1", ErrInvalidLimit)
	case c.Limits.PollInterval <= 0:
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalidLimit)
	}

	for name, d := range map[string]time.Duration{
		"token_timeout":   c.TokenTimeout,
		"request_timeout": c.RequestTimeout,
		"cache.ttl":       c.Cache.TTL,
		"cache.max_ttl":   c.Cache.MaxTTL,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidDuration, name)
		}
	}

	obs := c.ObserveConfig()
	return obs.Validate()
}

// Resolve replaces ${VAR} and secretref: references in the credential
// fields using r.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	for _, field := range []*string{&c.ClientID, &c.ClientSecret, &c.APIKey} {
		resolved, err := r.ResolveValue(ctx, *field)
		if err != nil {
			return fmt.Errorf("resolve credentials: %w", err)
		}
		*field = resolved
	}
	return nil
}

// AdmissionConfig returns the admission limits.
func (c *Config) AdmissionConfig() resilience.AdmissionConfig {
	return resilience.AdmissionConfig{
		DailyQuota:    c.Limits.DailyQuota,
		BurstCapacity: c.Limits.BurstCapacity,
		RPSLimit:      c.Limits.RPSLimit,
		PollInterval:  c.Limits.PollInterval,
	}
}

// ObserveConfig returns the telemetry settings.
func (c *Config) ObserveConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Version:     o.Version,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}

// ClientOptions converts the configuration to client options.
func (c *Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithTokenURL(c.TokenURL),
		client.WithBaseURL(c.BaseURL),
		client.WithScope(c.Scope),
		client.WithTokenTimeout(c.TokenTimeout),
		client.WithRequestTimeout(c.RequestTimeout),
		client.WithAdmission(c.AdmissionConfig()),
		client.WithEventBuffer(c.Events.Buffer),
	}
	if c.Cache.Enabled {
		opts = append(opts, client.WithCache(nil, cache.Policy{TTL: c.Cache.TTL, MaxTTL: c.Cache.MaxTTL}))
	}
	return opts
}

// NewClient builds the observer and a client wired to it. Shut the
// observer down after closing the client.
func (c *Config) NewClient(ctx context.Context, extra ...client.Option) (*client.Client, observe.Observer, error) {
	obs, err := observe.NewObserver(ctx, c.ObserveConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("create observer: %w", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("create middleware: %w", err), obs.Shutdown(ctx))
	}

	opts := append(c.ClientOptions(), client.WithMiddleware(mw))
	opts = append(opts, extra...)

	mot, err := client.New(c.ClientID, c.ClientSecret, c.APIKey, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, obs.Shutdown(ctx))
	}
	return mot, obs, nil
}
