package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Log       LogConfig
	Stripe    StripeConfig
	Provider  ProviderConfig
	Booking   BookingConfig
	Pricing   PricingConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Snowflake SnowflakeConfig
}

type ServerConfig struct {
	Port int
	// PublicBaseURL is the customer-facing origin used to build status-page
	// and callback links.
	PublicBaseURL string
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Enable it only behind
	// a reverse proxy that overwrites those headers.
	TrustProxy bool
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type LogConfig struct {
	Level string
	File  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	CancelPath    string
}

type ProviderConfig struct {
	BaseURL       string
	APIKey        string
	ReplicaID     string
	PersonaID     string
	WebhookSecret string
	Timeout       time.Duration
}

type BookingConfig struct {
	AllowTestMode bool
	InternalKey   string
}

type PricingConfig struct {
	Currency   string
	VideoPrice string
	CallPrice  string
}

type SecurityConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type SnowflakeConfig struct {
	Node int64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.publicbaseurl", "http://localhost:8080")
	v.SetDefault("server.trustproxy", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "avatarbook")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.name", "avatarbook")
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", "5m")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lockttl", "2m")
	v.SetDefault("rabbitmq.exchange", "notifications")
	v.SetDefault("log.level", "info")
	v.SetDefault("stripe.cancelpath", "/book?cancelled=1")
	v.SetDefault("provider.baseurl", "https://tavusapi.com")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("booking.allowtestmode", false)
	v.SetDefault("pricing.currency", "usd")
	v.SetDefault("pricing.videoprice", "29.00")
	v.SetDefault("pricing.callprice", "49.00")
	v.SetDefault("security.issuer", "avatarbook")
	v.SetDefault("security.tokenttl", "1h")
	v.SetDefault("ratelimit.rps", 5)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("snowflake.node", 1)
}

// Keys without a default are invisible to Unmarshal unless bound explicitly.
var envOnlyKeys = []string{
	"redis.addr",
	"redis.password",
	"rabbitmq.url",
	"log.file",
	"stripe.secretkey",
	"stripe.webhooksecret",
	"provider.apikey",
	"provider.replicaid",
	"provider.personaid",
	"provider.webhooksecret",
	"booking.internalkey",
	"security.jwtsecret",
}

// Load reads the YAML file at path (optional) and overlays environment
// variables such as DATABASE_HOST or STRIPE_WEBHOOKSECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("server.publicBaseUrl required")
	}
	if c.Booking.AllowTestMode && c.Booking.InternalKey == "" {
		return fmt.Errorf("booking.internalKey required when booking.allowTestMode is set")
	}
	return nil
}
