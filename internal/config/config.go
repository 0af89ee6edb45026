package config

import (
	"log"
	"time"

	"buildflow/pkg/circuitbreaker"
	"buildflow/pkg/config"
)

type Config struct {
	DB        config.DBConfig        `yaml:"db"`
	MQ        config.MQConfig        `yaml:"mq"`
	Redis     config.RedisConfig     `yaml:"redis"`
	JWT       config.JWTConfig       `yaml:"jwt"`
	Server    config.ServerConfig    `yaml:"server"`
	Scheduler config.SchedulerConfig `yaml:"scheduler"`
	Breaker   config.BreakerConfig   `yaml:"breaker"`
	Otel      config.OtelConfig      `yaml:"otel"`
	Log       config.LogConfig       `yaml:"log"`
	Outbox    struct {
		MaxRetries      int `yaml:"max_retries"`
		IntervalSeconds int `yaml:"interval_seconds"`
		BatchSize       int `yaml:"batch_size"`
	} `yaml:"outbox"`
}

// Load reads config/base.yaml plus the CONFIG_ENV overlay, then applies
// environment overrides.
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	var cfg Config
	if err := config.Decode(env, configDir, &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSchedulerFromEnv(&cfg.Scheduler)
	config.OverrideLogFromEnv(&cfg.Log)

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8085"
	}
	if cfg.MQ.MaxRetries <= 0 {
		cfg.MQ.MaxRetries = 5
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}

	return &cfg
}

// BreakerSettings converts the yaml section; zero values fall back to the
// breaker defaults.
func (c *Config) BreakerSettings() circuitbreaker.Config {
	return circuitbreaker.Config{
		FailureThreshold: c.Breaker.FailureThreshold,
		Timeout:          time.Duration(c.Breaker.TimeoutSeconds) * time.Second,
	}
}
