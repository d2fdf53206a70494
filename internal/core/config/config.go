package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultPath = "./configs/config.local.yaml"

type HTTP struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout_sec"`
	RequestTimeout  int    `mapstructure:"request_timeout_sec"` // 单请求超时
	MaxBodyMB       int    `mapstructure:"max_body_mb"`
	MaxInFlight     int64  `mapstructure:"max_in_flight"`
}

type App struct {
	Name  string `mapstructure:"name"`
	Env   string `mapstructure:"env"` // development / production
	HTTP  HTTP   `mapstructure:"http"`
	Admin HTTP   `mapstructure:"admin"`
}

func (a App) IsProduction() bool { return strings.EqualFold(a.Env, "production") }

type Rotate struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	JSON   bool   `mapstructure:"json"`
	Rotate Rotate `mapstructure:"rotate"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

type Redis struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ProfileTTLSec int    `mapstructure:"profile_ttl_sec"`
}

type DB struct {
	Driver             string `mapstructure:"driver"` // postgres / mysql / mongo
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	URI                string `mapstructure:"uri"`  // mongo
	Name               string `mapstructure:"name"` // mongo database
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	ConnectTimeoutSec  int    `mapstructure:"connect_timeout_sec"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

type Mail struct {
	Driver   string `mapstructure:"driver"` // smtp / log
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	AppURL   string `mapstructure:"app_url"`
}

type Presence struct {
	SweepIntervalSec int `mapstructure:"sweep_interval_sec"`
	IdleTimeoutMin   int `mapstructure:"idle_timeout_min"`
}

func (p Presence) Interval() time.Duration {
	return time.Duration(p.SweepIntervalSec) * time.Second
}

func (p Presence) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutMin) * time.Minute
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimit struct {
	WindowMin int `mapstructure:"window_min"`
	Max       int `mapstructure:"max"`
}

type Tasks struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Log       Log       `mapstructure:"log"`
	JWT       JWT       `mapstructure:"jwt"`
	DB        DB        `mapstructure:"db"`
	Redis     Redis     `mapstructure:"redis"`
	Mail      Mail      `mapstructure:"mail"`
	Presence  Presence  `mapstructure:"presence"`
	CORS      CORS      `mapstructure:"cors"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Tasks     Tasks     `mapstructure:"tasks"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bulkbuy-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 5000)
	v.SetDefault("app.http.read_timeout_sec", 10)
	v.SetDefault("app.http.write_timeout_sec", 15)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.http.request_timeout_sec", 10)
	v.SetDefault("app.http.max_body_mb", 10)
	v.SetDefault("app.http.max_in_flight", 300)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 5001)
	v.SetDefault("app.admin.read_timeout_sec", 5)
	v.SetDefault("app.admin.write_timeout_sec", 10)
	v.SetDefault("app.admin.idle_timeout_sec", 60)
	v.SetDefault("app.admin.request_timeout_sec", 10)
	v.SetDefault("app.admin.max_body_mb", 1)
	v.SetDefault("app.admin.max_in_flight", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/api.log")
	v.SetDefault("log.rotate.max_size_mb", 100)
	v.SetDefault("log.rotate.max_backups", 7)
	v.SetDefault("log.rotate.max_age_days", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "bulkbuy")
	v.SetDefault("jwt.access_token_ttl_min", 30*24*60) // 30 天

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.uri", "mongodb://localhost:27017")
	v.SetDefault("db.name", "bulkbuy")
	v.SetDefault("db.max_open_conns", 50)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.connect_timeout_sec", 10)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.profile_ttl_sec", 60)

	v.SetDefault("mail.driver", "log")
	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "BulkBuy <noreply@bulkbuy.com>")
	v.SetDefault("mail.app_url", "http://localhost:5173")

	v.SetDefault("presence.sweep_interval_sec", 60)
	v.SetDefault("presence.idle_timeout_min", 5)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("rate_limit.window_min", 15)
	v.SetDefault("rate_limit.max", 100)

	v.SetDefault("tasks.workers", 4)
	v.SetDefault("tasks.queue_size", 1024)
}

// Load 读取配置：默认值 < yaml 文件 < APP_ 前缀环境变量
// path 为空时取 CONFIG_PATH，再退回 ./configs/config.local.yaml（该默认文件缺失可容忍）
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := true
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = defaultPath
			explicit = false
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var ErrMissingJWTSecret = errors.New("jwt.secret is required in production")

func (c *Config) validate() error {
	if c.App.IsProduction() && c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = "dev-secret-change-me"
	}
	return nil
}
