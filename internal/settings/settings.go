// Package settings merges defaults, an optional YAML config file and the
// environment into one Settings value shared by the API, client and CLI.
package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Settings struct {
	APIAddr        string        `mapstructure:"api_addr"`
	ClientAddr     string        `mapstructure:"client_addr"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ClientTimeout  time.Duration `mapstructure:"client_timeout"`

	StoreDriver   string `mapstructure:"store_driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	ImportPasswordHash string `mapstructure:"import_password_hash"`
	ImportPassword     string `mapstructure:"import_password"`

	ArchiveDriver      string `mapstructure:"archive_driver"`
	ArchiveDir         string `mapstructure:"archive_dir"`
	ArchiveS3Bucket    string `mapstructure:"archive_s3_bucket"`
	ArchiveS3Region    string `mapstructure:"archive_s3_region"`
	ArchiveS3Endpoint  string `mapstructure:"archive_s3_endpoint"`
	ArchiveS3Prefix    string `mapstructure:"archive_s3_prefix"`
	ArchiveS3PathStyle bool   `mapstructure:"archive_s3_path_style"`
	NewsletterSeed     string `mapstructure:"newsletter_seed"`

	StaffName string `mapstructure:"staff_name"`
	LogFormat string `mapstructure:"log_format"`
	LogLevel  string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"api_addr":        ":8080",
	"client_addr":     ":3000",
	"api_base_url":    "http://localhost:8080",
	"request_timeout": 15 * time.Second,
	"client_timeout":  10 * time.Second,

	"store_driver":   "sqlite",
	"sqlite_path":    "briskolive.db",
	"postgres_dsn":   "",
	"mongo_uri":      "mongodb://localhost:27017",
	"mongo_database": "briskolive",

	"import_password_hash": "",
	"import_password":      "",

	"archive_driver":        "",
	"archive_dir":           "archive",
	"archive_s3_bucket":     "",
	"archive_s3_region":     "",
	"archive_s3_endpoint":   "",
	"archive_s3_prefix":     "",
	"archive_s3_path_style": false,
	"newsletter_seed":       "",

	"staff_name": "Staff",
	"log_format": "text",
	"log_level":  "info",
}

// Load reads configFile when set. Environment variables named after the
// upper-cased keys (API_ADDR, STORE_DRIVER, ...) override the file.
func Load(configFile string) (Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.StoreDriver = strings.ToLower(strings.TrimSpace(s.StoreDriver))
	s.ArchiveDriver = strings.ToLower(strings.TrimSpace(s.ArchiveDriver))
	s.APIBaseURL = strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = defaults["request_timeout"].(time.Duration)
	}
	if s.ClientTimeout <= 0 {
		s.ClientTimeout = defaults["client_timeout"].(time.Duration)
	}
	return s, nil
}

// FromEnv is Load without a config file. A malformed environment value
// falls back to the defaults.
func FromEnv() Settings {
	s, err := Load("")
	if err != nil {
		s, _ = loadDefaults()
	}
	return s
}

func loadDefaults() (Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	var s Settings
	err := v.Unmarshal(&s)
	return s, err
}
