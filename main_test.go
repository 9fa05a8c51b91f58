package main

import (
	"testing"

	"github.com/brieflyhq/briefly/config"
	"github.com/brieflyhq/briefly/pkg/logging"
)

func TestLoadConfigDefaultPath(t *testing.T) {
	// No briefly.yaml in the test working directory; defaults apply.
	cfgFile = ""
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Redis.Queue != config.DefaultQueueName {
		t.Errorf("Queue = %q, want default", cfg.Redis.Queue)
	}
}

func TestNewLoggerDebugFlag(t *testing.T) {
	cfg := config.Default()

	debug = true
	defer func() { debug = false }()

	log := newLogger(cfg)
	if log == nil {
		t.Fatal("newLogger returned nil")
	}
	// The returned logger must satisfy the interface chain.
	log.With(logging.F("k", "v")).Debug("startup")
}
