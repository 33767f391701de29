package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	SiteURL          string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	JWTTokenTTL      time.Duration
	BcryptCost       int
	StatsCacheTTL    time.Duration
	MailProvider     string
	MailFromName     string
	MailFromAddress  string
	SendGridAPIKey   string
	NotificationsOn  bool
	CloudName        string
	CloudAPIKey      string
	CloudAPISecret   string
	CloudFolder      string
	MaxUploadSizeMB  int
	FanoutChannelKey string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLASSHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ClassHub API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("site.url", "http://localhost:8080")
	v.SetDefault("jwt.token_ttl", "24h")
	v.SetDefault("bcrypt.cost", 12)
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("mail.provider", "console")
	v.SetDefault("mail.from_name", "ClassHub")
	v.SetDefault("mail.from_address", "noreply@classhub.local")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("cloud.folder", "classhub/requirements")
	v.SetDefault("max_upload_size_mb", 10)
	v.SetDefault("fanout.channel", "classhub")

	tokenTTL, err := time.ParseDuration(v.GetString("jwt.token_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt token ttl: %w", err)
	}

	statsTTL, err := time.ParseDuration(v.GetString("stats.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		SiteURL:          strings.TrimRight(v.GetString("site.url"), "/"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		JWTTokenTTL:      tokenTTL,
		BcryptCost:       v.GetInt("bcrypt.cost"),
		StatsCacheTTL:    statsTTL,
		MailProvider:     strings.ToLower(v.GetString("mail.provider")),
		MailFromName:     v.GetString("mail.from_name"),
		MailFromAddress:  v.GetString("mail.from_address"),
		SendGridAPIKey:   v.GetString("sendgrid_api_key"),
		NotificationsOn:  v.GetBool("notifications.enabled"),
		CloudName:        v.GetString("cloud.name"),
		CloudAPIKey:      v.GetString("cloud.api_key"),
		CloudAPISecret:   v.GetString("cloud.api_secret"),
		CloudFolder:      v.GetString("cloud.folder"),
		MaxUploadSizeMB:  v.GetInt("max_upload_size_mb"),
		FanoutChannelKey: v.GetString("fanout.channel"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MailProvider == "sendgrid" && cfg.SendGridAPIKey == "" {
		return Config{}, fmt.Errorf("sendgrid api key must be provided when mail provider is sendgrid")
	}

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		cfg.BcryptCost = 12
	}

	if cfg.MaxUploadSizeMB <= 0 {
		cfg.MaxUploadSizeMB = 10
	}

	return cfg, nil
}
