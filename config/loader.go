package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/jonwraymond/motapi/client"
	"github.com/jonwraymond/motapi/resilience"
	"github.com/jonwraymond/motapi/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOTAPI"

func setDefaults(v *viper.Viper) {
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("api_key", "")

	v.SetDefault("token_url", client.DefaultTokenURL)
	v.SetDefault("base_url", client.DefaultBaseURL)
	v.SetDefault("scope", client.DefaultScope)

	v.SetDefault("token_timeout", "30s")
	v.SetDefault("request_timeout", "0s")

	v.SetDefault("limits.daily_quota", resilience.DefaultDailyQuota)
	v.SetDefault("limits.burst_capacity", resilience.DefaultBurstCapacity)
	v.SetDefault("limits.rps_limit", resilience.DefaultRPSLimit)
	v.SetDefault("limits.poll_interval", resilience.DefaultPollInterval.String())

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.max_ttl", "1h")

	v.SetDefault("events.buffer", client.DefaultEventBuffer)

	v.SetDefault("observe.service_name", "motapi")
	v.SetDefault("observe.version", "")
	v.SetDefault("observe.tracing.enabled", false)
	v.SetDefault("observe.tracing.exporter", "none")
	v.SetDefault("observe.tracing.sample_pct", 1.0)
	v.SetDefault("observe.metrics.enabled", false)
	v.SetDefault("observe.metrics.exporter", "none")
	v.SetDefault("observe.logging.enabled", true)
	v.SetDefault("observe.logging.level", "info")
}

// Read decodes defaults, the YAML file at path (skipped when path is
// empty) and MOTAPI_* environment variables, in increasing precedence.
// The result is neither resolved nor validated.
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads the configuration, resolves credential references with the
// built-in env and file secret providers, and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	resolver, err := secret.NewBuiltinRegistry().NewResolver(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("create secret resolver: %w", err)
	}
	defer func() { _ = resolver.Close() }()

	if err := cfg.Resolve(ctx, resolver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
