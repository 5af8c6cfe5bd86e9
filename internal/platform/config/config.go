package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

const (
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultShutdownTimeout  = 15 * time.Second
	defaultDefaultPageSize  = 20
	defaultMaxPageSize      = 100
	defaultRecentHireWindow = 30 * 24 * time.Hour
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Employees EmployeesConfig `yaml:"employees"`
}

// ServerConfig は HTTP API とヘルスチェック用 gRPC サーバーに関する設定です。
type ServerConfig struct {
	HTTPListenAddr     string        `yaml:"http_listen_addr" env:"APP_HTTP_LISTEN_ADDR, overwrite"`
	HealthListenAddr   string        `yaml:"health_listen_addr" env:"APP_HEALTH_LISTEN_ADDR, overwrite"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	ShutdownTimeout    time.Duration `yaml:"-"`
	ReadTimeoutRaw     string        `yaml:"read_timeout" env:"APP_HTTP_READ_TIMEOUT, overwrite"`
	WriteTimeoutRaw    string        `yaml:"write_timeout" env:"APP_HTTP_WRITE_TIMEOUT, overwrite"`
	ShutdownTimeoutRaw string        `yaml:"shutdown_timeout" env:"APP_SHUTDOWN_TIMEOUT, overwrite"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host" env:"APP_DB_HOST, overwrite"`
	Port               int           `yaml:"port" env:"APP_DB_PORT, overwrite"`
	User               string        `yaml:"user" env:"APP_DB_USER, overwrite"`
	Password           string        `yaml:"password" env:"APP_DB_PASSWORD, overwrite"`
	Name               string        `yaml:"name" env:"APP_DB_NAME, overwrite"`
	SSLMode            string        `yaml:"ssl_mode" env:"APP_DB_SSL_MODE, overwrite"`
	MaxOpenConns       int           `yaml:"max_open_conns" env:"APP_DB_MAX_OPEN_CONNS, overwrite"`
	MaxIdleConns       int           `yaml:"max_idle_conns" env:"APP_DB_MAX_IDLE_CONNS, overwrite"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime" env:"APP_DB_CONN_MAX_LIFETIME, overwrite"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time" env:"APP_DB_CONN_MAX_IDLE_TIME, overwrite"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level  string `yaml:"level" env:"APP_LOG_LEVEL, overwrite"`
	Pretty bool   `yaml:"pretty" env:"APP_LOG_PRETTY, overwrite"`
}

// EmployeesConfig は従業員 API のページングと統計に関する設定です。
type EmployeesConfig struct {
	DefaultPageSize     int           `yaml:"default_page_size" env:"APP_EMPLOYEES_DEFAULT_PAGE_SIZE, overwrite"`
	MaxPageSize         int           `yaml:"max_page_size" env:"APP_EMPLOYEES_MAX_PAGE_SIZE, overwrite"`
	RecentHireWindow    time.Duration `yaml:"-"`
	RecentHireWindowRaw string        `yaml:"recent_hire_window" env:"APP_EMPLOYEES_RECENT_HIRE_WINDOW, overwrite"`
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	return LoadWithLookuper(context.Background(), path, envconfig.OsLookuper())
}

// LoadWithLookuper は環境変数の参照先を差し替えて設定を読み込みます。
func LoadWithLookuper(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if lookuper != nil {
		if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
			return nil, fmt.Errorf("config: apply env overrides: %w", err)
		}
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	if err := c.Server.validateAndNormalize(); err != nil {
		return err
	}

	db := &c.Database
	if err := db.validateAndNormalize(); err != nil {
		return err
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return c.Employees.validateAndNormalize()
}

func (s *ServerConfig) validateAndNormalize() error {
	if s.HTTPListenAddr == "" {
		return fmt.Errorf("config: server.http_listen_addr must be set")
	}

	var err error
	if s.ReadTimeout, err = parseDurationOrDefault(s.ReadTimeoutRaw, defaultReadTimeout); err != nil {
		return fmt.Errorf("config: server.read_timeout: %w", err)
	}
	if s.WriteTimeout, err = parseDurationOrDefault(s.WriteTimeoutRaw, defaultWriteTimeout); err != nil {
		return fmt.Errorf("config: server.write_timeout: %w", err)
	}
	if s.ShutdownTimeout, err = parseDurationOrDefault(s.ShutdownTimeoutRaw, defaultShutdownTimeout); err != nil {
		return fmt.Errorf("config: server.shutdown_timeout: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationOrDefault(d.ConnMaxLifetimeRaw, 0)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationOrDefault(d.ConnMaxIdleTimeRaw, 0)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func (e *EmployeesConfig) validateAndNormalize() error {
	if e.DefaultPageSize < 0 || e.MaxPageSize < 0 {
		return fmt.Errorf("config: employees page sizes must not be negative")
	}
	if e.MaxPageSize == 0 {
		e.MaxPageSize = defaultMaxPageSize
	}
	if e.DefaultPageSize == 0 {
		e.DefaultPageSize = defaultDefaultPageSize
	}
	if e.DefaultPageSize > e.MaxPageSize {
		return fmt.Errorf("config: employees.default_page_size %d exceeds max_page_size %d", e.DefaultPageSize, e.MaxPageSize)
	}

	window, err := parseDurationOrDefault(e.RecentHireWindowRaw, defaultRecentHireWindow)
	if err != nil {
		return fmt.Errorf("config: employees.recent_hire_window: %w", err)
	}
	if window <= 0 {
		return fmt.Errorf("config: employees.recent_hire_window must be positive")
	}
	e.RecentHireWindow = window
	return nil
}

func parseDurationOrDefault(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
