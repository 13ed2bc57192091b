package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret          string
	JWTTTL             time.Duration
	CookieTTLDays      int
	BcryptCost         int
	FieldEncryptionKey string // hex-encoded 32-byte AES key
	ResetTokenTTL      time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type RateLimitConfig struct {
	LoginMaxAttempts  int
	LoginWindow       time.Duration
	ForgotMaxAttempts int
	ForgotWindow      time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	SMTP             SMTPConfig
	RateLimit        RateLimitConfig
	AllowCORSOrigins []string
}

// FieldKey decodes the configured field-encryption key.
func (c SecurityConfig) FieldKey() ([]byte, error) {
	key, err := hex.DecodeString(c.FieldEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode field encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("field encryption key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("GLOBETRACKR")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	if cfg.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwtsecret is required")
	}
	if _, err := cfg.Security.FieldKey(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	// Token and cookie expire together: 90 days, the cookie expressed in
	// days and the token as a duration.
	v.SetDefault("security.jwtttl", "2160h")
	v.SetDefault("security.cookiettldays", 90)
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.resettokenttl", "10m")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "Trips Support <support@globetrackr.example>")

	v.SetDefault("ratelimit.loginmaxattempts", 10)
	v.SetDefault("ratelimit.loginwindow", "15m")
	v.SetDefault("ratelimit.forgotmaxattempts", 3)
	v.SetDefault("ratelimit.forgotwindow", "1h")
}
