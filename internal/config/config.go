package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"Circle_Community/internal/pkg"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory" // 内存 SQLite，重启丢数据
)

type ServerConfig struct {
	Port           int
	GinMode        string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver     string
	DSN        string
	SQLitePath string
}

// RedisConfig Addr 为空时启动进程内的 miniredis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type OutboxConfig struct {
	Brokers  []string
	Topic    string
	Interval time.Duration
	Batch    int
}

type LogConfig struct {
	Level  string
	Format string
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Outbox   OutboxConfig
	SMTP     pkg.SMTPConfig
	Log      LogConfig
}

// Load 先读 .env（可选）再读环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv 通过查找函数构建配置，测试直接传 map
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	cfg := &Config{
		Server: ServerConfig{
			Port:           r.int("PORT", 8080),
			GinMode:        r.str("GIN_MODE", "release"),
			AllowedOrigins: r.list("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(r.str("DB_DRIVER", DriverMySQL)),
			DSN:        r.str("MYSQL_DSN", ""),
			SQLitePath: r.str("SQLITE_PATH", "circle_community.db"),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			DB:       r.int("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret:   r.str("JWT_SECRET", ""),
			TokenTTL: r.duration("JWT_TTL", pkg.DefaultTokenTTL),
		},
		Outbox: OutboxConfig{
			Brokers:  r.list("KAFKA_BROKERS", nil),
			Topic:    r.str("KAFKA_TOPIC", pkg.DefaultModerationTopic),
			Interval: r.duration("OUTBOX_INTERVAL", time.Second),
			Batch:    r.int("OUTBOX_BATCH", 200),
		},
		SMTP: pkg.SMTPConfig{
			Host:     r.str("SMTP_HOST", ""),
			Port:     r.int("SMTP_PORT", 587),
			Username: r.str("SMTP_USERNAME", ""),
			Password: r.str("SMTP_PASSWORD", ""),
			From:     r.str("SMTP_FROM", ""),
		},
		Log: LogConfig{
			Level:  r.str("LOG_LEVEL", "info"),
			Format: r.str("LOG_FORMAT", "json"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when DB_DRIVER=mysql")
		}
		if c.Auth.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required when DB_DRIVER=mysql")
		}
	case DriverSQLite, DriverMemory:
		if c.Auth.Secret == "" {
			c.Auth.Secret = "dev-secret"
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Outbox.Batch <= 0 {
		return fmt.Errorf("OUTBOX_BATCH must be positive")
	}
	if c.Outbox.Interval <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// MailEnabled 配了 SMTP_HOST 才发邀请邮件
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return d
}

func (r *reader) list(key string, def []string) []string {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
