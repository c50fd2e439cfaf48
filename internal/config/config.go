package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Backup    BackupConfig    `yaml:"backup"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // stdio or http
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or memory
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type CalendarConfig struct {
	ReferenceYear  int           `yaml:"reference_year"`
	HolidayURL     string        `yaml:"holiday_url"`
	HolidayTimeout time.Duration `yaml:"holiday_timeout"`
}

type BackupConfig struct {
	Driver string   `yaml:"driver"` // fs or s3
	Dir    string   `yaml:"dir"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type EventsConfig struct {
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Auth: AuthConfig{
			Issuer: "plantrack",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "plantrack.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Calendar: CalendarConfig{
			ReferenceYear:  2026,
			HolidayURL:     "https://cdn.jsdelivr.net/gh/ruyut/TaiwanCalendar/data/%d.json",
			HolidayTimeout: 10 * time.Second,
		},
		Backup: BackupConfig{
			Driver: "fs",
			Dir:    "backups",
		},
		Events: EventsConfig{
			Topic:          "plantrack.changes",
			PollInterval:   time.Second,
			PublishTimeout: 5 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PLANTRACK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
		return nil
	}
	setBool := func(name string, dst *bool) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = b
		return nil
	}
	setDuration := func(name string, dst *time.Duration) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	setString("PLANTRACK_SERVER_HOST", &cfg.Server.Host)
	if err := setInt("PLANTRACK_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	setString("PLANTRACK_TRANSPORT", &cfg.Transport.Mode)

	if err := setBool("PLANTRACK_AUTH_ENABLED", &cfg.Auth.Enabled); err != nil {
		return err
	}
	setString("PLANTRACK_AUTH_SECRET", &cfg.Auth.Secret)
	setString("PLANTRACK_AUTH_ISSUER", &cfg.Auth.Issuer)

	setString("PLANTRACK_STORE_DRIVER", &cfg.Store.Driver)
	setString("PLANTRACK_DB_PATH", &cfg.Store.Path)
	setString("PLANTRACK_DB_DSN", &cfg.Store.DSN)

	setString("PLANTRACK_LOG_LEVEL", &cfg.Log.Level)
	setString("PLANTRACK_LOG_PATH", &cfg.Log.Path)

	if err := setInt("PLANTRACK_REFERENCE_YEAR", &cfg.Calendar.ReferenceYear); err != nil {
		return err
	}
	setString("PLANTRACK_HOLIDAY_URL", &cfg.Calendar.HolidayURL)
	if err := setDuration("PLANTRACK_HOLIDAY_TIMEOUT", &cfg.Calendar.HolidayTimeout); err != nil {
		return err
	}

	setString("PLANTRACK_BACKUP_DRIVER", &cfg.Backup.Driver)
	setString("PLANTRACK_BACKUP_DIR", &cfg.Backup.Dir)
	setString("PLANTRACK_S3_BUCKET", &cfg.Backup.S3.Bucket)
	setString("PLANTRACK_S3_PREFIX", &cfg.Backup.S3.Prefix)
	setString("PLANTRACK_S3_REGION", &cfg.Backup.S3.Region)
	setString("PLANTRACK_S3_ENDPOINT", &cfg.Backup.S3.Endpoint)
	if err := setBool("PLANTRACK_S3_PATH_STYLE", &cfg.Backup.S3.PathStyle); err != nil {
		return err
	}
	setString("PLANTRACK_S3_ACCESS_KEY_ID", &cfg.Backup.S3.AccessKeyID)
	setString("PLANTRACK_S3_SECRET_ACCESS_KEY", &cfg.Backup.S3.SecretAccessKey)

	if v := os.Getenv("PLANTRACK_KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Events.Brokers = append(cfg.Events.Brokers, b)
			}
		}
	}
	setString("PLANTRACK_KAFKA_TOPIC", &cfg.Events.Topic)
	if err := setDuration("PLANTRACK_KAFKA_POLL_INTERVAL", &cfg.Events.PollInterval); err != nil {
		return err
	}
	return setDuration("PLANTRACK_KAFKA_PUBLISH_TIMEOUT", &cfg.Events.PublishTimeout)
}

// Validate checks enumerated settings and required combinations.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver postgres requires a dsn")
		}
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}
	switch c.Backup.Driver {
	case "fs":
	case "s3":
		if c.Backup.S3.Bucket == "" {
			return fmt.Errorf("backup driver s3 requires a bucket")
		}
	default:
		return fmt.Errorf("invalid backup driver %q", c.Backup.Driver)
	}
	if c.Events.PollInterval <= 0 || c.Events.PublishTimeout <= 0 {
		return fmt.Errorf("events poll interval and publish timeout must be positive")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled without a secret")
	}
	if !strings.Contains(c.Calendar.HolidayURL, "%d") {
		return fmt.Errorf("holiday url must contain %%d for the year")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
