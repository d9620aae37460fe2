package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/grader/feedback"
	"codearena/internal/grader/runtime"
	"codearena/pkg/utils/logger"
)

// AppConfig is the full configuration for the grader service.
type AppConfig struct {
	Server    ServerConfig           `yaml:"server"`
	Logger    logger.Config          `yaml:"logger"`
	Database  db.MySQLConfig         `yaml:"database"`
	Redis     RedisSection           `yaml:"redis"`
	Kafka     KafkaSection           `yaml:"kafka"`
	MinIO     MinIOSection           `yaml:"minio"`
	Runner    RunnerConfig           `yaml:"runner"`
	Evaluator EvaluatorConfig        `yaml:"evaluator"`
	Feedback  FeedbackSection        `yaml:"feedback"`
	Languages []runtime.LanguageSpec `yaml:"languages"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Mode            string        `yaml:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RedisSection toggles the submission cache.
type RedisSection struct {
	Enabled bool `yaml:"enabled"`
	cache.RedisConfig `yaml:",inline"`
}

// KafkaSection toggles the resolved-event publisher.
type KafkaSection struct {
	Enabled bool `yaml:"enabled"`
	mq.KafkaConfig `yaml:",inline"`
}

// MinIOSection toggles source archiving.
type MinIOSection struct {
	Enabled bool `yaml:"enabled"`
	storage.MinIOConfig `yaml:",inline"`
}

// RunnerConfig holds process runner settings.
type RunnerConfig struct {
	WorkRoot       string `yaml:"workRoot"`
	MaxOutputBytes int64  `yaml:"maxOutputBytes"`
}

// EvaluatorConfig holds evaluation pipeline settings.
type EvaluatorConfig struct {
	PoolSize         int           `yaml:"poolSize"`
	CompileTimeLimit time.Duration `yaml:"compileTimeLimit"`
	FeedbackTimeout  time.Duration `yaml:"feedbackTimeout"`
}

// FeedbackSection toggles the feedback collaborator.
type FeedbackSection struct {
	Enabled bool `yaml:"enabled"`
	feedback.Config `yaml:",inline"`
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8084,
			Mode:            "release",
			ShutdownTimeout: 30 * time.Second,
		},
		Logger: logger.Config{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
		Database: *db.DefaultMySQLConfig(),
		Redis: RedisSection{
			RedisConfig: *cache.DefaultRedisConfig(),
		},
		Runner: RunnerConfig{
			WorkRoot: "/tmp/codearena",
		},
		Evaluator: EvaluatorConfig{
			PoolSize:        4,
			FeedbackTimeout: 15 * time.Second,
		},
		Languages: runtime.DefaultLanguages(),
	}
}

// loadAppConfig reads the config file and fills in defaults.
// An empty path returns the defaults unchanged.
func loadAppConfig(path string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = runtime.DefaultLanguages()
	}
	return cfg, nil
}
