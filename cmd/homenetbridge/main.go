// homenet-bridge - RS-485 homenet-to-MQTT bridge
//
// This is the main entry point for the homenet-bridge application. It
// bridges Korean apartment-building RS-485 controller buses (Samsung SDS,
// Kocom, Commax, EZVille, Hyundai Imazu, CVnet) to an MQTT broker using
// Home Assistant MQTT Discovery conventions.
//
// For architecture details, see: SPEC_FULL.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nerrad567/homenet-bridge/internal/eventbus"
	"github.com/nerrad567/homenet-bridge/internal/infrastructure/config"
	"github.com/nerrad567/homenet-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/homenet-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/homenet-bridge/internal/port"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	fmt.Printf("homenet-bridge %s (%s) built %s\n", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPath resolves the config file to load: $CONFIG_ROOT/config.yaml
// when CONFIG_ROOT is set (spec §6), else ./config.yaml.
func configPath() string {
	if root := os.Getenv("CONFIG_ROOT"); root != "" {
		return filepath.Join(root, "config.yaml")
	}
	return "config.yaml"
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version).With("service", "homenet-bridge")
	log.Info("starting homenet-bridge", "bridge_id", cfg.Bridge.ID, "ports", len(cfg.Ports))

	client, err := mqtt.Connect(cfg.MQTT, cfg.Bridge.MQTTPrefix)
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	defer client.Close()
	client.SetLogger(log)

	supCfg, err := cfg.ToSupervisorConfig()
	if err != nil {
		return fmt.Errorf("building supervisor config: %w", err)
	}

	sup, err := port.NewSupervisor(supCfg, port.Deps{
		MQTT:       client,
		Subscriber: client,
		Bus:        eventbus.New(),
		Log:        log.Logger,
	})
	if err != nil {
		return fmt.Errorf("building port supervisor: %w", err)
	}

	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("starting port supervisor: %w", err)
	}

	log.Info("homenet-bridge running, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, stopping ports")
	sup.Stop()

	log.Info("homenet-bridge stopped")
	return nil
}
