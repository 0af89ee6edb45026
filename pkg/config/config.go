package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig PostgreSQL 连接配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
	// 超过该耗时的查询会被记录日志并计数
	SlowQueryMS int `yaml:"slow_query_ms"`
}

// MQConfig RabbitMQ 连接配置
type MQConfig struct {
	URL        string `yaml:"url"`
	MaxRetries int64  `yaml:"max_retries"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// SchedulerConfig 定时任务配置
// cron 表达式为带秒的六段格式，例如 "0 30 5 * * *"
type SchedulerConfig struct {
	PhaseProgressionSpec string `yaml:"phase_progression_spec"`
	OverdueDrawsSpec     string `yaml:"overdue_draws_spec"`
	Location             string `yaml:"location"`
	LockTTLSeconds       int    `yaml:"lock_ttl_seconds"`
	RunOnStart           bool   `yaml:"run_on_start"`
}

// LockTTL 返回运行锁的有效期，默认 15 分钟
func (c SchedulerConfig) LockTTL() time.Duration {
	if c.LockTTLSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LoadLocation 解析时区，失败时回退到 UTC
func (c SchedulerConfig) LoadLocation() *time.Location {
	if c.Location == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BreakerConfig 指标查询中可降级读取的熔断配置
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
}

// OtelConfig 链路追踪导出配置
type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LogConfig zap 日志级别与编码方式
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func OverrideLogFromEnv(cfg *LogConfig) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
}

func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

func OverrideSchedulerFromEnv(cfg *SchedulerConfig) {
	if spec := os.Getenv("PHASE_PROGRESSION_SPEC"); spec != "" {
		cfg.PhaseProgressionSpec = spec
	}
	if loc := os.Getenv("SCHEDULER_LOCATION"); loc != "" {
		cfg.Location = loc
	}
}
