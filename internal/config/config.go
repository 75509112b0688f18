package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"imbridge/pkg/config"
	"imbridge/pkg/otel"
)

// EngineConfig 事件引擎配置
type EngineConfig struct {
	SelfUin         string `yaml:"self_uin"`
	RecallCacheSize int    `yaml:"recall_cache_size"`
	SentCacheSize   int    `yaml:"sent_cache_size"`
	DedupBackend    string `yaml:"dedup_backend"` // memory | redis
	DedupTTLSeconds int    `yaml:"dedup_ttl_seconds"`
	MaxConcurrency  int    `yaml:"max_concurrency"`
	ItemTimeoutMS   int    `yaml:"item_timeout_ms"`
}

func (c EngineConfig) ItemTimeout() time.Duration {
	return time.Duration(c.ItemTimeoutMS) * time.Millisecond
}

func (c EngineConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

// GatewayConfig 后端查询接口配置
type GatewayConfig struct {
	BaseURL            string `yaml:"base_url"`
	TimeoutMS          int    `yaml:"timeout_ms"`
	BreakerMaxFailures uint32 `yaml:"breaker_max_failures"`
	BreakerOpenSeconds int    `yaml:"breaker_open_seconds"`
	UinCacheTTLSeconds int    `yaml:"uin_cache_ttl_seconds"`
}

func (c GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c GatewayConfig) BreakerOpen() time.Duration {
	return time.Duration(c.BreakerOpenSeconds) * time.Second
}

func (c GatewayConfig) UinCacheTTL() time.Duration {
	return time.Duration(c.UinCacheTTLSeconds) * time.Second
}

type Config struct {
	Log     config.LogConfig    `yaml:"log"`
	Engine  EngineConfig        `yaml:"engine"`
	Gateway GatewayConfig       `yaml:"gateway"`
	MQ      config.MQConfig     `yaml:"mq"`
	Redis   config.RedisConfig  `yaml:"redis"`
	DB      config.DBConfig     `yaml:"db"`
	Server  config.ServerConfig `yaml:"server"`
	Otel    otel.Config         `yaml:"otel"`
}

func Load() *Config {
	// 使用统一配置中心
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom 加载并校验配置，环境变量覆盖优先级最高
func LoadFrom(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	// 转换为 Config 结构
	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.OverrideLogFromEnv(&cfg.Log)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	overrideEngineFromEnv(&cfg.Engine)
	overrideGatewayFromEnv(&cfg.Gateway)

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideEngineFromEnv(cfg *EngineConfig) {
	if uin := os.Getenv("SELF_UIN"); uin != "" {
		cfg.SelfUin = uin
	}
	if backend := os.Getenv("DEDUP_BACKEND"); backend != "" {
		cfg.DedupBackend = backend
	}
	if n := os.Getenv("MAX_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			cfg.MaxConcurrency = v
		}
	}
}

func overrideGatewayFromEnv(cfg *GatewayConfig) {
	if url := os.Getenv("GATEWAY_BASE_URL"); url != "" {
		cfg.BaseURL = url
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.DedupBackend == "" {
		cfg.Engine.DedupBackend = "memory"
	}
	if cfg.Engine.MaxConcurrency <= 0 {
		cfg.Engine.MaxConcurrency = 16
	}
	if cfg.Engine.ItemTimeoutMS <= 0 {
		cfg.Engine.ItemTimeoutMS = 10000
	}
	if cfg.Engine.DedupTTLSeconds <= 0 {
		cfg.Engine.DedupTTLSeconds = 600
	}
	if cfg.Gateway.TimeoutMS <= 0 {
		cfg.Gateway.TimeoutMS = 3000
	}
	if cfg.Gateway.BreakerMaxFailures == 0 {
		cfg.Gateway.BreakerMaxFailures = 5
	}
	if cfg.Gateway.BreakerOpenSeconds <= 0 {
		cfg.Gateway.BreakerOpenSeconds = 30
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.PingIntervalSeconds <= 0 {
		cfg.Server.PingIntervalSeconds = 30
	}
}

func (c *Config) validate() error {
	if c.Engine.SelfUin == "" || c.Engine.SelfUin == "${SELF_UIN}" {
		return fmt.Errorf("engine.self_uin is required")
	}
	switch c.Engine.DedupBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("engine.dedup_backend must be memory or redis, got %q", c.Engine.DedupBackend)
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	return nil
}
