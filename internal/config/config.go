package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"imc-manager/internal/env"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":8080")
 * @property {string} mode - Application mode (debug/release/test)
 * @property {string} socket - Optional unix socket name for local CLI access
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
	Socket  string `mapstructure:"socket"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for metrics
 * @property {int} push_interval - Push interval in seconds, <= 0 disables pushing
 * @property {string} job - Job label used when pushing
 */
type MetricsConfig struct {
	Pushgateway  string `mapstructure:"pushgateway"`
	PushInterval int    `mapstructure:"push_interval"`
	Job          string `mapstructure:"job"`
}

/**
 * Backend API the dashboard reads from and sends commands to
 * @property {string} base_url - Base URL of the platform API
 * @property {duration} timeout - Per request timeout
 * @property {string} username - Basic auth user for the platform API
 * @property {string} password - Basic auth password for the platform API
 */
type BackendConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
}

// StreamConfig 上游事件流
type StreamConfig struct {
	Path              string        `mapstructure:"path"`
	BufferSize        int           `mapstructure:"buffer_size"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
}

// PollingConfig 各页面的轮询周期
type PollingConfig struct {
	Components time.Duration `mapstructure:"components"`
	Overview   time.Duration `mapstructure:"overview"`
	Files      time.Duration `mapstructure:"files"`
	Progress   time.Duration `mapstructure:"progress"`
	Telemetry  time.Duration `mapstructure:"telemetry"`
}

// CommandsConfig 命令下发后的刷新延迟
type CommandsConfig struct {
	RefreshDelay        time.Duration `mapstructure:"refresh_delay"`
	ServiceRefreshDelay time.Duration `mapstructure:"service_refresh_delay"`
}

/**
 * Service discovery used to locate the driver database server
 * @property {string} service - Registry name of the database server
 * @property {duration} ttl - How long a resolved URL stays valid
 * @property {string} fallback_url - URL used when discovery fails
 * @property {string} instance - Database instance segment in API paths
 */
type DiscoveryConfig struct {
	Service     string        `mapstructure:"service"`
	TTL         time.Duration `mapstructure:"ttl"`
	FallbackURL string        `mapstructure:"fallback_url"`
	Instance    string        `mapstructure:"instance"`
}

// AuthConfig 访问仪表盘所需的Basic认证, username为空表示不启用
type AuthConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

var ErrServiceNotFound = errors.New("service not found")

type AppConfig struct {
	Server     ServerConfig      `mapstructure:"server"`
	Log        LogConfig         `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Backend    BackendConfig     `mapstructure:"backend"`
	Stream     StreamConfig      `mapstructure:"stream"`
	Polling    PollingConfig     `mapstructure:"polling"`
	Commands   CommandsConfig    `mapstructure:"commands"`
	Discovery  DiscoveryConfig   `mapstructure:"discovery"`
	Auth       AuthConfig        `mapstructure:"auth"`
	Components []ComponentConfig `mapstructure:"components"`
	Services   []ServiceConfig   `mapstructure:"services"`
}

var (
	Config     AppConfig
	configFile string
	mu         sync.RWMutex
)

/**
 * Load application configuration from YAML file
 * @returns {*AppConfig} Parsed configuration with defaults applied
 * @returns {error} Error if the file exists but cannot be parsed
 * @description
 * - Searches ".", "$HOME/.imc-manager" and "/etc/imc-manager" for config.yaml
 * - An explicit file set by SetConfigFile wins over the search path
 * - Environment variables prefixed with IMC_ override file values
 * - A missing config file is not an error, defaults are used
 */
func LoadConfig() (*AppConfig, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(env.DataDir)
		v.AddConfigPath("/etc/imc-manager")
	}
	v.SetEnvPrefix("IMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return collectConfig(&cfg), nil
}

// bindEnv AutomaticEnv只对已知key生效, 这里把常用项注册上
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"server.address", "server.mode", "log.level", "log.path",
		"backend.base_url", "backend.timeout", "backend.username", "backend.password",
		"auth.username", "auth.password", "metrics.pushgateway",
	} {
		_ = v.BindEnv(key)
	}
}

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "imc_manager"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8080"
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Stream.Path == "" {
		cfg.Stream.Path = "/stream"
	}
	if cfg.Stream.BufferSize <= 0 {
		cfg.Stream.BufferSize = 50
	}
	if cfg.Stream.ReconnectDelay <= 0 {
		cfg.Stream.ReconnectDelay = 3 * time.Second
	}
	if cfg.Stream.MaxReconnectDelay < cfg.Stream.ReconnectDelay {
		cfg.Stream.MaxReconnectDelay = 30 * time.Second
	}
	if cfg.Polling.Components <= 0 {
		cfg.Polling.Components = 10 * time.Second
	}
	if cfg.Polling.Overview <= 0 {
		cfg.Polling.Overview = 10 * time.Second
	}
	if cfg.Polling.Files <= 0 {
		cfg.Polling.Files = 15 * time.Second
	}
	if cfg.Polling.Progress <= 0 {
		cfg.Polling.Progress = 20 * time.Second
	}
	if cfg.Polling.Telemetry <= 0 {
		cfg.Polling.Telemetry = 10 * time.Second
	}
	if cfg.Commands.RefreshDelay <= 0 {
		cfg.Commands.RefreshDelay = 2 * time.Second
	}
	if cfg.Commands.ServiceRefreshDelay <= 0 {
		cfg.Commands.ServiceRefreshDelay = 1 * time.Second
	}
	if cfg.Discovery.Service == "" {
		cfg.Discovery.Service = "imc-db-server"
	}
	if cfg.Discovery.TTL <= 0 {
		cfg.Discovery.TTL = 5 * time.Minute
	}
	if cfg.Discovery.FallbackURL == "" {
		cfg.Discovery.FallbackURL = "https://imc-db-server.apps.tas-ndc.kuhn-labs.com"
	}
	if cfg.Discovery.Instance == "" {
		cfg.Discovery.Instance = "db01"
	}
	if len(cfg.Components) == 0 {
		cfg.Components = DefaultComponents()
	}
	if len(cfg.Services) == 0 {
		cfg.Services = DefaultServices()
	}
	return cfg
}

// SetConfigFile 指定配置文件, 由--config参数设置
func SetConfigFile(path string) {
	if path != "" {
		path, _ = filepath.Abs(path)
	}
	configFile = path
}

/**
 * Reload configuration from disk
 * @returns {error} Returns error if the configuration cannot be read
 * @description
 * - Re-reads the config file and replaces the package level Config
 * - A running server applies the new values through services.Server.Reload
 */
func ReloadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	mu.Lock()
	Config = *cfg
	mu.Unlock()
	return nil
}

// App 返回当前配置的副本
func App() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	cfg := Config
	return &cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
		return
	}
	collectConfig(&Config)
}
