package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Reference  ReferenceConfig  `mapstructure:"reference"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisHost string        `mapstructure:"redis_host"`
	RedisPort string        `mapstructure:"redis_port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

type AggregatorConfig struct {
	RoundTripTimeout time.Duration `mapstructure:"round_trip_timeout"`
}

type ProvidersConfig struct {
	Amadeus    AmadeusConfig    `mapstructure:"amadeus"`
	Skyscanner SkyscannerConfig `mapstructure:"skyscanner"`
	Duffel     DuffelConfig     `mapstructure:"duffel"`
}

// ProviderCommon holds the knobs every provider client shares.
type ProviderCommon struct {
	Enabled  bool    `mapstructure:"enabled"`
	BaseURL  string  `mapstructure:"base_url"`
	RPS      float64 `mapstructure:"rps"`
	Burst    int     `mapstructure:"burst"`
	Fallback bool    `mapstructure:"fallback"`
}

type AmadeusConfig struct {
	ProviderCommon    `mapstructure:",squash"`
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	TokenSafetyBuffer time.Duration `mapstructure:"token_safety_buffer"`
}

type SkyscannerConfig struct {
	ProviderCommon `mapstructure:",squash"`
	APIKey         string `mapstructure:"api_key"`
	Host           string `mapstructure:"host"`
}

type DuffelConfig struct {
	ProviderCommon `mapstructure:",squash"`
	AccessToken    string `mapstructure:"access_token"`
	Version        string `mapstructure:"version"`
}

type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

func (c CacheConfig) Addr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// Load resolves configuration from .env, an optional config.yaml and the
// process environment, in increasing order of precedence.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_host", "localhost")
	v.SetDefault("cache.redis_port", "6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.timeout", 10*time.Second)
	v.SetDefault("retry.base_delay", 500*time.Millisecond)

	v.SetDefault("aggregator.round_trip_timeout", 60*time.Second)

	v.SetDefault("providers.amadeus.enabled", true)
	v.SetDefault("providers.amadeus.base_url", "https://test.api.amadeus.com")
	v.SetDefault("providers.amadeus.client_id", "")
	v.SetDefault("providers.amadeus.client_secret", "")
	v.SetDefault("providers.amadeus.token_safety_buffer", 60*time.Second)
	v.SetDefault("providers.amadeus.rps", 10)
	v.SetDefault("providers.amadeus.burst", 10)
	v.SetDefault("providers.amadeus.fallback", true)

	v.SetDefault("providers.skyscanner.enabled", true)
	v.SetDefault("providers.skyscanner.base_url", "https://sky-scrapper.p.rapidapi.com")
	v.SetDefault("providers.skyscanner.api_key", "")
	v.SetDefault("providers.skyscanner.host", "sky-scrapper.p.rapidapi.com")
	v.SetDefault("providers.skyscanner.rps", 5)
	v.SetDefault("providers.skyscanner.burst", 5)
	v.SetDefault("providers.skyscanner.fallback", true)

	v.SetDefault("providers.duffel.enabled", true)
	v.SetDefault("providers.duffel.base_url", "https://api.duffel.com")
	v.SetDefault("providers.duffel.access_token", "")
	v.SetDefault("providers.duffel.version", "v2")
	v.SetDefault("providers.duffel.rps", 5)
	v.SetDefault("providers.duffel.burst", 5)
	v.SetDefault("providers.duffel.fallback", true)

	v.SetDefault("reference.path", "")
}

// bindEnv maps nested keys to A_B style variables and keeps the short
// names the server has always honoured.
func bindEnv(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string][]string{
		"server.port":                     {"SERVER_PORT", "PORT"},
		"cache.enabled":                   {"CACHE_ENABLED"},
		"cache.redis_host":                {"CACHE_REDIS_HOST", "REDIS_HOST"},
		"cache.redis_port":                {"CACHE_REDIS_PORT", "REDIS_PORT"},
		"cache.password":                  {"CACHE_PASSWORD", "REDIS_PASSWORD"},
		"cache.ttl":                       {"CACHE_TTL", "REDIS_TTL"},
		"providers.amadeus.client_id":     {"PROVIDERS_AMADEUS_CLIENT_ID", "AMADEUS_CLIENT_ID"},
		"providers.amadeus.client_secret": {"PROVIDERS_AMADEUS_CLIENT_SECRET", "AMADEUS_CLIENT_SECRET"},
		"providers.skyscanner.api_key":    {"PROVIDERS_SKYSCANNER_API_KEY", "RAPIDAPI_KEY"},
		"providers.duffel.access_token":   {"PROVIDERS_DUFFEL_ACCESS_TOKEN", "DUFFEL_ACCESS_TOKEN"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be at least 1")
	}
	if c.Retry.Timeout <= 0 {
		return errors.New("retry.timeout must be positive")
	}
	if c.Retry.BaseDelay < 0 {
		return errors.New("retry.base_delay must not be negative")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive when the cache is enabled")
	}
	return nil
}
