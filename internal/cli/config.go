package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the configuration shared by every command.
// It is read from arbor.yaml, overridden by ARBOR_* environment variables and flags.
type Config struct {
	Name      string           `mapstructure:"name" validate:"required"`
	Layout    string           `mapstructure:"layout"`
	Watch     bool             `mapstructure:"watch"`
	Addr      string           `mapstructure:"addr" validate:"required"`
	Metrics   bool             `mapstructure:"metrics"`
	Log       LogConfig        `mapstructure:"log"`
	Store     StoreConfig      `mapstructure:"store"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// StoreConfig selects the snapshot store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory file redis sqlite"`
	// Path is the snapshot directory (file) or the database file (sqlite).
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gte=0"`
	// EncryptionKey is a base64 AES-256 key. When set, snapshots are stored sealed.
	EncryptionKey string   `mapstructure:"encryption_key" validate:"omitempty,base64"`
	FallbackKeys  []string `mapstructure:"fallback_keys" validate:"dive,base64"`
	// Redact lists regular expressions; matching payload keys are masked before storage.
	Redact []string `mapstructure:"redact"`
}

// Defaults registers the default value of every key, which also lets
// AutomaticEnv resolve them during Unmarshal.
func Defaults(v *viper.Viper) {
	v.SetDefault("name", "arbor")
	v.SetDefault("layout", "")
	v.SetDefault("watch", false)
	v.SetDefault("addr", ":8080")
	v.SetDefault("metrics", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.prefix", "arbor:")
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.encryption_key", "")
	v.SetDefault("store.fallback_keys", []string{})
	v.SetDefault("store.redact", []string{})
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

// LoadConfig reads cfgFile (or ./arbor.yaml when empty) into a validated Config.
// A missing default file is not an error; a missing explicit file is.
func LoadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	Defaults(v)
	v.SetEnvPrefix("ARBOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("arbor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
