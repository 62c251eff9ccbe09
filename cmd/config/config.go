package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	AWS       AWSConfig
	Session   SessionConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Addr string
	Mode string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type StorageConfig struct {
	Backend     string
	UploadDir   string
	MaxUploadMB int64
}

type AWSConfig struct {
	Region   string
	S3Bucket string
	S3Prefix string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
	Store      string
	BcryptCost int

	// PurgeSchedule is the cron spec for deleting expired DB sessions.
	PurgeSchedule string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Storage.MaxUploadMB << 20
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "localtube.db")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.max_upload_mb", 512)

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.s3_prefix", "videos/")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "localtube_session")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.store", "db")
	v.SetDefault("session.bcrypt_cost", 10)
	v.SetDefault("session.purge_schedule", "@every 10m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "localtube:")

	v.SetDefault("ratelimit.max", 20)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from an optional config.yaml, a .env file and
// LOCALTUBE_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment only")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("cmd/config/")
	v.AddConfigPath(".")
	setDefaults(v)

	v.SetEnvPrefix("LOCALTUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Storage: StorageConfig{
			Backend:     v.GetString("storage.backend"),
			UploadDir:   v.GetString("storage.upload_dir"),
			MaxUploadMB: v.GetInt64("storage.max_upload_mb"),
		},
		AWS: AWSConfig{
			Region:   v.GetString("aws.region"),
			S3Bucket: v.GetString("aws.s3_bucket"),
			S3Prefix: v.GetString("aws.s3_prefix"),
		},
		Session: SessionConfig{
			Secret:        v.GetString("session.secret"),
			TTL:           v.GetDuration("session.ttl"),
			CookieName:    v.GetString("session.cookie_name"),
			Secure:        v.GetBool("session.secure"),
			Store:         v.GetString("session.store"),
			BcryptCost:    v.GetInt("session.bcrypt_cost"),
			PurgeSchedule: v.GetString("session.purge_schedule"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		RateLimit: RateLimitConfig{
			Max:    v.GetInt("ratelimit.max"),
			Window: v.GetDuration("ratelimit.window"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return errors.New("session.secret must be set (LOCALTUBE_SESSION_SECRET)")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.AWS.S3Bucket == "" {
			return errors.New("aws.s3_bucket must be set for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unsupported storage.backend %q", c.Storage.Backend)
	}
	switch c.Session.Store {
	case "db":
	case "redis":
		if !c.RedisEnabled() {
			return errors.New("redis.addr must be set for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported session.store %q", c.Session.Store)
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("storage.max_upload_mb must be positive, got %d", c.Storage.MaxUploadMB)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		logrus.Warnf("Invalid log level %q, using info", c.Log.Level)
		c.Log.Level = "info"
	}
	return nil
}
