package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Issuer               string        `koanf:"issuer"`                // issuer claim for tokens (default: http://localhost:8080)
	Algorithm            string        `koanf:"algorithm"`             // JWT signing algorithm, RS*, PS* or ES* (default: RS256)
	RSABits              int           `koanf:"rsa_bits"`              // RSA key size for RS256 (default: 4096)
	NumKeys              int           `koanf:"num_keys"`              // number of signing keys to generate (default: 3, max: 10)
	DatabaseFile         string        `koanf:"database_file"`         // path to SQLite database file (default: ./auth.db)
	PepperFile           string        `koanf:"pepper_file"`           // path to file containing pepper for secret hashing (default: ./pepper)
	SeedFile             string        `koanf:"seed_file"`             // optional YAML file of clients and users applied at start-up
	Env                  string        `koanf:"env"`                   // dev, staging, prod (default: dev)
	LogLevel             string        `koanf:"log_level"`             // debug, info, warn, error (default: info)
	LogFormat            string        `koanf:"log_format"`            // json, text (default: json)
	Port                 int           `koanf:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `koanf:"shutdown_grace_period"` // graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `koanf:"housekeeping_interval"` // expiry sweep interval (default: 30s)

	Cache     CacheConfig      `koanf:"cache"`
	CIBA      CIBAConfig       `koanf:"ciba"`
	RateLimit httpx.RateLimits `koanf:"ratelimit"`
}

// CacheConfig selects the grant cache. Driver is memory or valkey.
type CacheConfig struct {
	Driver       string `koanf:"driver"`
	ValkeyAddr   string `koanf:"valkey_addr"`
	ValkeyPrefix string `koanf:"valkey_prefix"`
}

type CIBAConfig struct {
	Enabled               bool          `koanf:"enabled"`
	ExpiresIn             time.Duration `koanf:"expires_in"`
	MaxExpiresIn          time.Duration `koanf:"max_expires_in"`
	Interval              time.Duration `koanf:"interval"`
	LoginHintClaims       []string      `koanf:"login_hint_claims"`
	BindingMessagePattern string        `koanf:"binding_message_pattern"`
	NotificationEndpoint  string        `koanf:"notification_endpoint"` // push gateway for authentication devices
	JWKSCacheTTL          time.Duration `koanf:"jwks_cache_ttl"`
	AccessTokenTTL        time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `koanf:"refresh_token_ttl"`
	IDTokenTTL            time.Duration `koanf:"id_token_ttl"`
	CallbackTimeout       time.Duration `koanf:"callback_timeout"`
}

// envKeys maps the environment variables the service reads to config keys.
var envKeys = map[string]string{
	"AUTH_ISSUER":        "issuer",
	"AUTH_ALGORITHM":     "algorithm",
	"AUTH_RSA_BITS":      "rsa_bits",
	"AUTH_NUM_KEYS":      "num_keys",
	"AUTH_DATABASE_FILE": "database_file",
	"AUTH_PEPPER_FILE":   "pepper_file",
	"AUTH_SEED_FILE":     "seed_file",

	"ENV":                   "env",
	"LOG_LEVEL":             "log_level",
	"LOG_FORMAT":            "log_format",
	"PORT":                  "port",
	"SHUTDOWN_GRACE_PERIOD": "shutdown_grace_period",
	"HOUSEKEEPING_INTERVAL": "housekeeping_interval",

	"AUTH_CACHE_DRIVER":        "cache.driver",
	"AUTH_CACHE_VALKEY_ADDR":   "cache.valkey_addr",
	"AUTH_CACHE_VALKEY_PREFIX": "cache.valkey_prefix",

	"CIBA_ENABLED":                 "ciba.enabled",
	"CIBA_EXPIRES_IN":              "ciba.expires_in",
	"CIBA_MAX_EXPIRES_IN":          "ciba.max_expires_in",
	"CIBA_INTERVAL":                "ciba.interval",
	"CIBA_LOGIN_HINT_CLAIMS":       "ciba.login_hint_claims",
	"CIBA_BINDING_MESSAGE_PATTERN": "ciba.binding_message_pattern",
	"CIBA_NOTIFICATION_ENDPOINT":   "ciba.notification_endpoint",
	"CIBA_JWKS_CACHE_TTL":          "ciba.jwks_cache_ttl",
	"CIBA_ACCESS_TOKEN_TTL":        "ciba.access_token_ttl",
	"CIBA_REFRESH_TOKEN_TTL":       "ciba.refresh_token_ttl",
	"CIBA_ID_TOKEN_TTL":            "ciba.id_token_ttl",
	"CIBA_CALLBACK_TIMEOUT":        "ciba.callback_timeout",
}

// Rate-limit profiles read RATELIMIT_{PROFILE}_{REQUESTS,WINDOW,BURST},
// e.g. RATELIMIT_STRICT_WINDOW=30s.
func init() {
	for _, profile := range []string{"strict", "moderate", "lenient", "public"} {
		for _, field := range []string{"requests", "window", "burst"} {
			envKeys["RATELIMIT_"+strings.ToUpper(profile)+"_"+strings.ToUpper(field)] = "ratelimit." + profile + "." + field
		}
	}
}

func defaultConfig() Config {
	return Config{
		Issuer:               "http://localhost:8080",
		Algorithm:            "RS256",
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 30 * time.Second,
		Cache: CacheConfig{
			Driver:       "memory",
			ValkeyPrefix: "ciba:",
		},
		CIBA: CIBAConfig{
			Enabled:               true,
			ExpiresIn:             time.Hour,
			MaxExpiresIn:          2 * time.Hour,
			Interval:              2 * time.Second,
			LoginHintClaims:       []string{"mail", "uid"},
			BindingMessagePattern: `^[a-zA-Z0-9 ]{1,20}$`,
			JWKSCacheTTL:          10 * time.Minute,
			AccessTokenTTL:        15 * time.Minute,
			RefreshTokenTTL:       30 * 24 * time.Hour,
			IDTokenTTL:            time.Hour,
			CallbackTimeout:       5 * time.Second,
		},
		RateLimit: httpx.DefaultRateLimits(),
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by AUTH_CONFIG_FILE (optional), then the environment.
func LoadConfig() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("AUTH_CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Issuer == "":
		return fmt.Errorf("config: issuer is required")
	case c.Cache.Driver != "memory" && c.Cache.Driver != "valkey":
		return fmt.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	case c.Cache.Driver == "valkey" && c.Cache.ValkeyAddr == "":
		return fmt.Errorf("config: cache.valkey_addr is required for the valkey driver")
	case c.CIBA.ExpiresIn <= 0 || c.CIBA.MaxExpiresIn < c.CIBA.ExpiresIn:
		return fmt.Errorf("config: ciba.expires_in must be positive and at most ciba.max_expires_in")
	case c.CIBA.Interval < time.Second || c.CIBA.Interval%time.Second != 0:
		return fmt.Errorf("config: ciba.interval must be a whole number of seconds, at least 1s")
	}
	return nil
}
