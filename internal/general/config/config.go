package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReporterRoute describes one simulated vehicle and the waypoints it walks.
type ReporterRoute struct {
	VehicleID string   `mapstructure:"vehicle_id"`
	Waypoints []string `mapstructure:"waypoints"` // each "lat,lng"
}

// ReporterConfig drives the reporter fleet emission behavior. SyncSpeed and
// MovementThresholdMeters are re-read on every cycle so edits to the config
// file take effect without a restart.
type ReporterConfig struct {
	SyncSpeed               string          `mapstructure:"sync_speed"` // FAST | MEDIUM | SLOW
	MovementThresholdMeters float64         `mapstructure:"movement_threshold_meters"`
	StepMeters              float64         `mapstructure:"step_meters"`
	Routes                  []ReporterRoute `mapstructure:"routes"`
}

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	RabbitMQ struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
	} `mapstructure:"rabbitmq"`
	Redis struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
		DB   int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Tracker struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"tracker"`
	Reporter ReporterConfig `mapstructure:"reporter"`
}

var (
	configMutex   sync.RWMutex
	currentConfig *Config
)

// LoadFromFile loads config from a YAML file, applies defaults, validates
// required fields, and starts watching the file for live changes.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	setCurrent(&cfg)

	v.WatchConfig()
	v.OnConfigChange(func(fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			return
		}
		applyDefaults(&next)
		if err := next.validate(); err != nil {
			return
		}
		setCurrent(&next)
	})

	return &cfg, nil
}

// Current returns the latest valid configuration snapshot.
func Current() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return currentConfig
}

func setCurrent(cfg *Config) {
	configMutex.Lock()
	currentConfig = cfg
	configMutex.Unlock()
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	// Tracker
	if cfg.Tracker.Port == 0 {
		cfg.Tracker.Port = 3000
	}

	// Reporter
	if cfg.Reporter.SyncSpeed == "" {
		cfg.Reporter.SyncSpeed = "MEDIUM"
	}
	if cfg.Reporter.MovementThresholdMeters == 0 {
		cfg.Reporter.MovementThresholdMeters = 25
	}
	if cfg.Reporter.StepMeters == 0 {
		cfg.Reporter.StepMeters = 40
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Redis
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		problems = append(problems, "redis.port must be in 1..65535")
	}

	// Tracker
	if c.Tracker.Port <= 0 || c.Tracker.Port > 65535 {
		problems = append(problems, "tracker.port must be in 1..65535")
	}

	// Reporter
	switch strings.ToUpper(strings.TrimSpace(c.Reporter.SyncSpeed)) {
	case "FAST", "MEDIUM", "SLOW":
	default:
		problems = append(problems, "reporter.sync_speed must be FAST, MEDIUM or SLOW")
	}
	if c.Reporter.MovementThresholdMeters < 0 {
		problems = append(problems, "reporter.movement_threshold_meters must not be negative")
	}
	for i, route := range c.Reporter.Routes {
		if strings.TrimSpace(route.VehicleID) == "" {
			problems = append(problems, fmt.Sprintf("reporter.routes[%d].vehicle_id is required", i))
		}
		if len(route.Waypoints) < 2 {
			problems = append(problems, fmt.Sprintf("reporter.routes[%d] needs at least two waypoints", i))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
