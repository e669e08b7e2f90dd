package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/candh/internal/db"
)

// Config is the application configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Engine   EngineConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// EngineConfig tunes change detection.
type EngineConfig struct {
	// Debug logs every recorded history attribute at debug level.
	Debug bool
	// SuppressNoopUpdates skips storing updates that changed nothing.
	SuppressNoopUpdates bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{SuppressNoopUpdates: true},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads config.yaml from configPath. Environment variables prefixed
// with CANDH_ override file values, e.g. CANDH_DATABASE_HOST. A missing
// file is not an error.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("CANDH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.Database = db.Config{
		Host:     v.GetString("database.host"),
		Port:     v.GetInt("database.port"),
		User:     v.GetString("database.user"),
		Password: v.GetString("database.password"),
		DBName:   v.GetString("database.dbname"),
		SSLMode:  v.GetString("database.sslmode"),
	}
	cfg.Server = ServerConfig{
		Port:            v.GetInt("server.port"),
		AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
	}
	cfg.Engine = EngineConfig{
		Debug:               v.GetBool("engine.debug"),
		SuppressNoopUpdates: v.GetBool("engine.suppress_noop_updates"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.dbname", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("engine.debug", cfg.Engine.Debug)
	v.SetDefault("engine.suppress_noop_updates", cfg.Engine.SuppressNoopUpdates)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}
