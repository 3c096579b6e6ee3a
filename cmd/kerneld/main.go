// Command kerneld wires the workflow execution kernel's components
// into a running process: a Snapshot Store, the 43 pattern executors,
// the Scheduler, the append-only Receipt Log, the Case Engine, the
// Promotion Pipeline, the Policy Store, the Autonomic Loop, a
// Supervision Tree, and the HTTP control surface. Wiring style follows
// http.StartServer/GracefulShutdown's signal-driven lifecycle.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatman-systems/workflowkernel/autonomic"
	"github.com/chatman-systems/workflowkernel/caseengine"
	"github.com/chatman-systems/workflowkernel/controlsurface"
	"github.com/chatman-systems/workflowkernel/kernelconfig"
	"github.com/chatman-systems/workflowkernel/kernelcrypto"
	"github.com/chatman-systems/workflowkernel/kernellog"
	"github.com/chatman-systems/workflowkernel/pattern"
	"github.com/chatman-systems/workflowkernel/policy"
	"github.com/chatman-systems/workflowkernel/promotion"
	"github.com/chatman-systems/workflowkernel/receipt"
	"github.com/chatman-systems/workflowkernel/scheduler"
	"github.com/chatman-systems/workflowkernel/snapshot"
	"github.com/chatman-systems/workflowkernel/supervision"
	"github.com/chatman-systems/workflowkernel/telemetry"
	"github.com/chatman-systems/workflowkernel/telemetry/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kerneld:", err)
		os.Exit(1)
	}
}

func run() error {
	loader := kernelconfig.NewConfigLoader("KERNEL")
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	baseLogger := kernellog.New(kernellog.DefaultConfig("kerneld"))
	logger := kernellog.NewContextLogger(baseLogger, "kerneld")

	store := snapshot.NewStore()
	registry := pattern.NewDefaultRegistry()
	sched := scheduler.New(scheduler.NewBudgets(cfg.Doctrine.MaxHotPathTicks))
	log := receipt.NewLog()
	engine := caseengine.New(store, registry, sched, log)
	promoter := promotion.New(store, cfg.Doctrine, log, logger)

	if cfg.SigningKeySecret != "" {
		keys := kernelcrypto.NewKeyRing()
		keys.SetKey(cfg.SigningKeyRef, []byte(cfg.SigningKeySecret))
		promoter = promoter.WithSigner(kernelcrypto.NewProvider(keys))
	}

	policies := policy.NewStore(policy.Default(cfg.Doctrine))

	m := metrics.New("workflowkernel")
	tel, err := telemetry.New(telemetry.Config{
		ServiceName:   "workflowkernel",
		Version:       "dev",
		OTLPEndpoint:  cfg.OTLPEndpoint,
		Environment:   os.Getenv("KERNEL_ENVIRONMENT"),
		SamplingRatio: 1.0,
		Enabled:       cfg.TelemetryEnabled,
	}, m)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer tel.Shutdown(context.Background())

	loop := autonomic.New(cfg.Doctrine, policies, sched, log, logger, cfg.AutoPromote)
	loop.Start(cfg.MonitorInterval)
	defer loop.Stop()

	sup := supervision.New(supervision.OneForOne, cfg.Doctrine, logger)
	sup.AddChild(supervision.Child{
		Name: "eviction-sweeper",
		Run: func(stop <-chan struct{}) error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return nil
				case <-ticker.C:
					if n := engine.EvictTerminal(24 * time.Hour); n > 0 {
						logger.WithField("evicted", n).Info("evicted terminal cases")
					}
				}
			}
		},
	})
	defer sup.StopAll()

	surface := controlsurface.New(store, engine, promoter, policies, sched, log, controlsurface.DefaultConfig())

	errCh := make(chan error, 1)
	go func() {
		if err := surface.Start(cfg.ControlAddr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("control surface: %w", err)
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	return surface.Shutdown(10 * time.Second)
}
