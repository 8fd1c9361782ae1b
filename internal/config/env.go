package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type CheckoutEnv struct {
	InstallDir  string `envconfig:"CC_INSTALL_DIR"`
	Destination string `envconfig:"DESTINATION" default:"source"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".ccsetup/reports"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"ccsetup/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type Env struct {
	BaseEnv
	CheckoutEnv
	StorageEnv
}

const namespace = "CCSETUP"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsLocal reports whether logs go to a terminal in human-readable form.
func (e *BaseEnv) IsLocal() bool {
	return e == nil || e.Env == "local"
}
