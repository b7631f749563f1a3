package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath     string `mapstructure:"database_path" yaml:"database_path"`
	OfflineQueuePath string `mapstructure:"offline_queue_path" yaml:"offline_queue_path"`

	// StoreTimeout bounds every room/message store call.
	StoreTimeout time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`

	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	Push     PushConfig     `mapstructure:"push" yaml:"push"`
	Payments PaymentsConfig `mapstructure:"payments" yaml:"payments"`
}

// JWTConfig holds participant access-token validation settings.
type JWTConfig struct {
	Secret   string `mapstructure:"secret" yaml:"secret"`
	Issuer   string `mapstructure:"issuer" yaml:"issuer"`
	Audience string `mapstructure:"audience" yaml:"audience"`
}

// PushConfig holds push-notification transport settings.
type PushConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PaymentsConfig holds checkout-provider and webhook settings.
type PaymentsConfig struct {
	CheckoutURL   string        `mapstructure:"checkout_url" yaml:"checkout_url"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	SigningSecret string        `mapstructure:"signing_secret" yaml:"signing_secret"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "consult.db",
		OfflineQueuePath:  "offline-queue",
		StoreTimeout:      5 * time.Second,
		Push: PushConfig{
			Timeout: 5 * time.Second,
		},
		Payments: PaymentsConfig{
			Timeout: 10 * time.Second,
		},
	}
}
