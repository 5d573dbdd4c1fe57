// Package main implements the docstreams pipeline runner. It loads a
// declarative pipeline definition, materializes the middleware graph
// and hosts a runner per node on top of NATS.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/docstreams/conditional"
	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/middleware"
	"github.com/c360/docstreams/monitor"
	"github.com/c360/docstreams/natsclient"
	"github.com/c360/docstreams/pipelinestore"
	"github.com/c360/docstreams/runner"
	"github.com/c360/docstreams/transport"
)

// Build information constants.
const (
	Version = "0.1.0"
	appName = "docstreams"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)
	logger.Info("starting docstreams", "pipeline", cliCfg.PipelinePath)

	pipeline, err := loadPipeline(cliCfg.PipelinePath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("pipeline definition is valid", "pipeline", pipeline.ID)
		return nil
	}

	client, err := connectNATS(cliCfg.NATSURL, logger)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	tr, err := transport.NewNATS(client, errors.DefaultRetryConfig(), logger)
	if err != nil {
		return err
	}

	notifier := middleware.NewNotifier()
	mon, err := startMonitor(cliCfg.MonitorPort, notifier, logger)
	if err != nil {
		return err
	}

	runners, err := buildRunners(pipeline, notifier, tr, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, r := range runners {
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("start runner %s: %w", r.Name(), err)
		}
	}
	logger.Info("pipeline running", "pipeline", pipeline.ID, "runners", len(runners))

	waitForSignal(logger)
	shutdown(runners, mon, cliCfg.ShutdownTimeout, logger)
	return nil
}

func loadPipeline(path string) (*pipelinestore.Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline definition: %w", err)
	}
	pipeline, err := pipelinestore.LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("load pipeline definition: %w", err)
	}
	return pipeline, nil
}

func connectNATS(url string, logger *slog.Logger) (*natsclient.Client, error) {
	client, err := natsclient.New(url,
		natsclient.WithName(appName),
		natsclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return client, nil
}

func startMonitor(port int, notifier *middleware.Notifier, logger *slog.Logger) (*monitor.Monitor, error) {
	if port == 0 {
		return nil, nil
	}
	mon, err := monitor.New(port, "/graph", monitor.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	notifier.Subscribe(mon.Listener())
	if err := mon.Start(context.Background()); err != nil {
		return nil, err
	}
	return mon, nil
}

// buildRunners materializes the graph and wraps each node in a runner.
// Nodes run the identity handler: routing behavior comes entirely from
// edge conditionals until domain handlers are plugged in.
func buildRunners(
	pipeline *pipelinestore.Pipeline,
	notifier *middleware.Notifier,
	tr transport.Transport,
	logger *slog.Logger,
) ([]*runner.Runner, error) {
	registry := middleware.NewRegistry()
	if err := registerBuiltins(registry); err != nil {
		return nil, err
	}

	nodes, err := pipeline.Build(registry, notifier)
	if err != nil {
		return nil, fmt.Errorf("build pipeline %s: %w", pipeline.ID, err)
	}

	metrics := runner.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	runners := make([]*runner.Runner, 0, len(nodes))
	for _, node := range nodes {
		r, err := runner.New(node, runner.Identity(), tr,
			runner.WithLogger(logger),
			runner.WithMetrics(metrics),
		)
		if err != nil {
			return nil, err
		}
		runners = append(runners, r)
	}
	return runners, nil
}

// passthroughConfig declares the MIME surface of a passthrough node.
type passthroughConfig struct {
	InputTypes  []string `json:"input_types"`
	OutputTypes []string `json:"output_types"`
}

type passthrough struct {
	name string
	cfg  passthroughConfig
}

func (p passthrough) Name() string                          { return p.name }
func (p passthrough) SupportedInputTypes() []string         { return p.cfg.InputTypes }
func (p passthrough) SupportedOutputTypes() []string        { return p.cfg.OutputTypes }
func (p passthrough) Conditional() *conditional.Conditional { return nil }

func (p passthrough) SupportedComputeTypes() []middleware.ComputeType {
	return []middleware.ComputeType{middleware.ComputeCPU}
}

func registerBuiltins(registry *middleware.Registry) error {
	return registry.RegisterFactory(&middleware.Registration{
		Name:        "passthrough",
		Description: "Forwards events unchanged; routing via edge conditionals",
		Version:     Version,
		Factory: func(instanceName string, rawConfig json.RawMessage) (middleware.Middleware, error) {
			cfg := passthroughConfig{InputTypes: []string{"*/*"}, OutputTypes: []string{"*/*"}}
			if len(rawConfig) > 0 && string(rawConfig) != "null" {
				if err := json.Unmarshal(rawConfig, &cfg); err != nil {
					return nil, err
				}
			}
			return passthrough{name: instanceName, cfg: cfg}, nil
		},
	})
}

func waitForSignal(logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
}

func shutdown(runners []*runner.Runner, mon *monitor.Monitor, timeout time.Duration, logger *slog.Logger) {
	for _, r := range runners {
		if err := r.Stop(timeout); err != nil {
			logger.Warn("runner stop failed", "runner", r.Name(), "error", err)
		}
	}
	if mon != nil {
		if err := mon.Stop(timeout); err != nil {
			logger.Warn("monitor stop failed", "error", err)
		}
	}
}
