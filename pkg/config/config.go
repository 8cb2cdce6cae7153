package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName is used for the default data directory.
const AppName = "ghibli-blocker"

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	TimelineURL       string `mapstructure:"TIMELINE_URL"`
	CDPURL            string `mapstructure:"CDP_URL"`
	Headless          bool   `mapstructure:"HEADLESS"`
	ChromeUserDataDir string `mapstructure:"CHROME_USER_DATA_DIR"`
	ChromeProxy       string `mapstructure:"CHROME_PROXY"`

	ClassifierURL     string        `mapstructure:"CLASSIFIER_URL"`
	ClassifierLabel   string        `mapstructure:"CLASSIFIER_LABEL"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`

	MediaWait     time.Duration `mapstructure:"MEDIA_WAIT"`
	TimelineRetry time.Duration `mapstructure:"TIMELINE_RETRY"`
	Workers       int           `mapstructure:"WORKERS"`
	QueueSize     int           `mapstructure:"QUEUE_SIZE"`
	SweepExisting bool          `mapstructure:"SWEEP_EXISTING"`

	StoreBackend string `mapstructure:"STORE_BACKEND"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
}

var defaults = map[string]any{
	"SERVER_PORT": "8080",
	"LOG_LEVEL":   "info",

	"TIMELINE_URL":         "https://x.com/home",
	"CDP_URL":              "",
	"HEADLESS":             false,
	"CHROME_USER_DATA_DIR": "",
	"CHROME_PROXY":         "",

	"CLASSIFIER_URL":     "https://no-ghibli.onrender.com/predict",
	"CLASSIFIER_LABEL":   "Ghibli",
	"CLASSIFIER_TIMEOUT": "0s",

	"MEDIA_WAIT":     "5s",
	"TIMELINE_RETRY": "1s",
	"WORKERS":        4,
	"QUEUE_SIZE":     64,
	"SWEEP_EXISTING": false,

	"STORE_BACKEND": "sqlite",
	"SQLITE_PATH":   "",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"POSTGRES_HOST":     "",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "user",
	"POSTGRES_PASSWORD": "password",
	"POSTGRES_DB":       "blocker",
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// The .env file is optional; environment variables alone are enough.
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(xdg.DataHome, AppName, "preferences.db")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	return &cfg, nil
}

// PostgresEnabled reports whether the Postgres block log is configured.
func (c *Config) PostgresEnabled() bool {
	return c.PostgresHost != ""
}
