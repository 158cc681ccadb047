package config

import (
	"os"
	"runtime"
	"sync"

	"github.com/fsandov/klipper-gotify/pkg/env"
)

// AppConfig describes the running process, for logs and telemetry resources.
type AppConfig struct {
	AppName      string
	Version      string
	Environment  string
	Hostname     string
	Architecture string
	OS           string
}

var (
	instance *AppConfig
	once     sync.Once
)

func Init(cfg *AppConfig) {
	once.Do(func() {
		if cfg.AppName == "" {
			cfg.AppName = os.Getenv("APP_NAME")
		}
		if cfg.AppName == "" {
			cfg.AppName = "klipper-gotify"
		}
		if cfg.Version == "" {
			cfg.Version = "dev"
		}
		if cfg.Environment == "" {
			cfg.Environment = env.GetEnvironment()
		}
		if cfg.Environment == "" {
			cfg.Environment = "local"
		}
		if cfg.Hostname == "" {
			cfg.Hostname, _ = os.Hostname()
		}
		if cfg.OS == "" {
			cfg.OS = runtime.GOOS
		}
		if cfg.Architecture == "" {
			cfg.Architecture = runtime.GOARCH
		}
		instance = cfg
	})
}

func Get() *AppConfig {
	if instance == nil {
		Init(&AppConfig{})
	}
	return instance
}
