package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config top-level struct
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Rabbit    RabbitConfig    `yaml:"rabbit"`
	Notify    NotifyConfig    `yaml:"notify"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RabbitConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	Queue      string `yaml:"queue"`
	RoutingKey string `yaml:"routing_key"`
}

// NotifyConfig controls the outbox delivery pipeline.
type NotifyConfig struct {
	AckTimeout    time.Duration `yaml:"ack_timeout"`    // confirm wait before a record becomes retry-eligible
	MaxAttempts   int           `yaml:"max_attempts"`   // publish attempts before FAILED
	SweepInterval time.Duration `yaml:"sweep_interval"` // retry scheduler period
	SweepBatch    int           `yaml:"sweep_batch"`
	AtomicDedup   bool          `yaml:"atomic_dedup"` // HSetNX claim instead of check-then-set
}

type SMTPConfig struct {
	Addr     string `yaml:"addr"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

// Load reads yaml file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// override sensitive values from env if present
	if pw := os.Getenv("POSTGRES_PASSWORD"); pw != "" {
		cfg.Postgres.DSN = cfg.Postgres.DSN + " password=" + pw
	}
	if u := os.Getenv("RABBIT_URL"); u != "" {
		cfg.Rabbit.URL = u
	}
	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		cfg.SMTP.Password = pw
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Notify.AckTimeout <= 0 {
		cfg.Notify.AckTimeout = time.Minute
	}
	if cfg.Notify.MaxAttempts <= 0 {
		cfg.Notify.MaxAttempts = 3
	}
	if cfg.Notify.SweepInterval <= 0 {
		cfg.Notify.SweepInterval = 10 * time.Second
	}
	if cfg.Notify.SweepBatch <= 0 {
		cfg.Notify.SweepBatch = 100
	}
}
