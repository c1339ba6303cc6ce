package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings of every okview component.
type Config struct {
	Worker  WorkerConfig
	Manager ManagerConfig
	Store   StoreConfig
	Console ConsoleConfig
	Docker  DockerConfig
	Log     LogConfig
}

type WorkerConfig struct {
	Host            string
	Port            int
	Name            string
	ProcRoot        string        `mapstructure:"proc_root"`
	CollectInterval time.Duration `mapstructure:"collect_interval"`
}

type ManagerConfig struct {
	Host string
	Port int
	// Workers are worker api addresses. Empty means the local worker.
	Workers      []string
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type StoreConfig struct {
	// Backend is "memory" or "etcd".
	Backend       string
	EtcdEndpoints []string      `mapstructure:"etcd_endpoints"`
	EtcdPrefix    string        `mapstructure:"etcd_prefix"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
}

type ConsoleConfig struct {
	Host         string
	Port         int
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type DockerConfig struct {
	Enabled bool
}

type LogConfig struct {
	// Level is debug, info or error.
	Level       string
	Development bool
}

// environment names of the cube daemon, still honoured
var aliases = map[string]string{
	"worker.host":  "CUBE_WORKER_HOST",
	"worker.port":  "CUBE_WORKER_PORT",
	"manager.host": "CUBE_MANAGER_HOST",
	"manager.port": "CUBE_MANAGER_PORT",
}

func setDefaults(v *viper.Viper) {
	host, _ := os.Hostname()
	v.SetDefault("worker.host", "localhost")
	v.SetDefault("worker.port", 5555)
	v.SetDefault("worker.name", host)
	v.SetDefault("worker.proc_root", "/")
	v.SetDefault("worker.collect_interval", 15*time.Second)
	v.SetDefault("manager.host", "localhost")
	v.SetDefault("manager.port", 5556)
	v.SetDefault("manager.workers", []string{})
	v.SetDefault("manager.poll_interval", 15*time.Second)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.etcd_endpoints", []string{"localhost:2379"})
	v.SetDefault("store.etcd_prefix", "/okview/nodes/")
	v.SetDefault("store.dial_timeout", 5*time.Second)
	v.SetDefault("console.host", "localhost")
	v.SetDefault("console.port", 5557)
	v.SetDefault("console.fetch_timeout", 10*time.Second)
	v.SetDefault("docker.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration from file and env. Env var overrides use prefix
// OKVIEW_. The file is path, else $OKVIEW_CONFIG, else
// ~/.config/okview/config.toml when it exists.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path == "" {
		path = os.Getenv("OKVIEW_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "okview"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OKVIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, alias := range aliases {
		env := "OKVIEW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, alias); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", alias, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory":
	case "etcd":
		if len(c.Store.EtcdEndpoints) == 0 {
			return errors.New("store.etcd_endpoints must not be empty for the etcd backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Manager.PollInterval <= 0 || c.Worker.CollectInterval <= 0 {
		return errors.New("poll and collect intervals must be positive")
	}
	return nil
}

// WorkerAddress is the api address the manager polls for the local worker.
func (c Config) WorkerAddress() string {
	return fmt.Sprintf("%v:%v", c.Worker.Host, c.Worker.Port)
}

// ConsoleURL is the base url of the console api.
func (c Config) ConsoleURL() string {
	return fmt.Sprintf("http://%v:%v", c.Console.Host, c.Console.Port)
}
