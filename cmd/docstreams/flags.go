package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	PipelinePath    string
	NATSURL         string
	LogLevel        string
	LogFormat       string
	MonitorPort     int
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.PipelinePath, "pipeline",
		getEnv("DOCSTREAMS_PIPELINE", "pipeline.yaml"),
		"Path to pipeline definition file (env: DOCSTREAMS_PIPELINE)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("DOCSTREAMS_NATS_URL", "nats://localhost:4222"),
		"NATS server URL (env: DOCSTREAMS_NATS_URL)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("DOCSTREAMS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: DOCSTREAMS_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("DOCSTREAMS_LOG_FORMAT", "json"),
		"Log format: json, text (env: DOCSTREAMS_LOG_FORMAT)")

	flag.IntVar(&cfg.MonitorPort, "monitor-port",
		getEnvInt("DOCSTREAMS_MONITOR_PORT", 0),
		"Graph monitor WebSocket port, 0 to disable (env: DOCSTREAMS_MONITOR_PORT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("DOCSTREAMS_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: DOCSTREAMS_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate the pipeline definition and exit")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if _, err := os.Stat(cfg.PipelinePath); err != nil {
		return fmt.Errorf("pipeline definition not found: %s", cfg.PipelinePath)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MonitorPort != 0 && (cfg.MonitorPort < 1024 || cfg.MonitorPort > 65535) {
		return fmt.Errorf("invalid monitor port: %d", cfg.MonitorPort)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
