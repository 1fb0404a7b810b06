// Command dombusgateway bridges RS485 DomBus home-automation buses to an
// MQTT broker with Home-Assistant-style discovery, and exposes a telnet
// admin interface for operators (spec.md §1, §4.7).
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/CreasolTech/DomBusGateway/internal/admin"
	"github.com/CreasolTech/DomBusGateway/internal/gateway"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/mqtt"
)

// Set at build time via ldflags, e.g.
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "/etc/dombusgateway/config.yaml"

func main() {
	fmt.Printf("DomBusGateway %s (%s) built %s\n", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "dombusgateway: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath resolves the configuration file path: DOMBUS_CONFIG if set,
// otherwise defaultConfigPath.
func getConfigPath() string {
	if v := os.Getenv("DOMBUS_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}

// run wires configuration, logging, the MQTT connection, the gateway and
// the admin interface together, then blocks until ctx is cancelled or a
// component that must never fail does (spec.md §7: a bad config file, a
// data directory that can't be created, or an admin port that can't be
// bound are all process-fatal; a lost MQTT connection or a dead serial
// bus are not — those recover or go quiescent on their own).
func run(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	logger := logging.New(cfg.Logging, cfg.Debug, version)

	broker, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	defer broker.Close()
	broker.SetLogger(logger)

	gw := gateway.New(cfg, broker, logger)
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway: %w", err)
	}
	defer gw.Stop()

	var admSrv *admin.Server
	var adminErrCh chan error
	if cfg.Telnet.Enabled {
		admSrv = admin.New(gw.Catalog(), gw.Registry(), gw.TxQueue(), gw.Publisher(), gw, logger)
		addr := net.JoinHostPort(cfg.Telnet.Address, strconv.Itoa(cfg.Telnet.Port))
		adminErrCh = make(chan error, 1)
		go func() { adminErrCh <- admSrv.ListenAndServe(addr) }()
	}

	logger.Info("dombusgateway started", "buses", len(cfg.Buses), "telnet", cfg.Telnet.Enabled)

	if adminErrCh != nil {
		select {
		case err := <-adminErrCh:
			return fmt.Errorf("admin interface: %w", err)
		case <-ctx.Done():
		}
		admSrv.Close()
		<-adminErrCh
	} else {
		<-ctx.Done()
	}

	logger.Info("shutdown signal received, stopping")
	return nil
}
