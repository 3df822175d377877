package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                     = "IDEABOARD"
	defaultHTTPHost               = "0.0.0.0"
	defaultHTTPPort               = 3000
	defaultDatabasePath           = "./data/ideas.db"
	defaultUploadsDir             = "./uploads"
	defaultUploadMaxBytes         = 10 * 1024 * 1024
	defaultStaticDir              = "./public"
	defaultLogLevel               = "info"
	defaultShutdownTimeoutSeconds = 10
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPHost        string
	HTTPPort        int
	DatabasePath    string
	UploadsDir      string
	UploadMaxBytes  int64
	StaticDir       string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// HTTPAddress joins host and port into a listen address.
func (c AppConfig) HTTPAddress() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
// PORT, DB_PATH and UPLOADS_DIR are read when the IDEABOARD_* variable is unset.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.host", defaultHTTPHost)
	configViper.SetDefault("http.port", defaultHTTPPort)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("uploads.dir", defaultUploadsDir)
	configViper.SetDefault("uploads.max_bytes", defaultUploadMaxBytes)
	configViper.SetDefault("static.dir", defaultStaticDir)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("shutdown.timeout_seconds", defaultShutdownTimeoutSeconds)

	bindEnv(configViper, "http.port", "IDEABOARD_HTTP_PORT", "PORT")
	bindEnv(configViper, "database.path", "IDEABOARD_DATABASE_PATH", "DB_PATH")
	bindEnv(configViper, "uploads.dir", "IDEABOARD_UPLOADS_DIR", "UPLOADS_DIR")
}

func bindEnv(configViper *viper.Viper, key string, names ...string) {
	input := append([]string{key}, names...)
	if err := configViper.BindEnv(input...); err != nil {
		panic(err)
	}
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPHost:        strings.TrimSpace(configViper.GetString("http.host")),
		HTTPPort:        configViper.GetInt("http.port"),
		DatabasePath:    strings.TrimSpace(configViper.GetString("database.path")),
		UploadsDir:      strings.TrimSpace(configViper.GetString("uploads.dir")),
		UploadMaxBytes:  configViper.GetInt64("uploads.max_bytes"),
		StaticDir:       strings.TrimSpace(configViper.GetString("static.dir")),
		LogLevel:        configViper.GetString("log.level"),
		ShutdownTimeout: time.Duration(configViper.GetInt("shutdown.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("uploads.dir is required")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown.timeout_seconds must be positive")
	}
	return nil
}
