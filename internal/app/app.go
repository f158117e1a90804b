package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"driftguard/server/internal/config"
	servernet "driftguard/server/internal/net"
	"driftguard/server/internal/sim"
	"driftguard/server/internal/telemetry"
	"driftguard/server/logging"
	loggingSinks "driftguard/server/logging/sinks"
)

type Config struct {
	Logger telemetry.Logger
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	envCfg, err := config.ParseEnv()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logConfig := logging.DefaultConfig()
	logConfig.MinimumSeverity = logging.Severity(envCfg.LogSeverity)
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout)},
	}
	if envCfg.LogJSONPath != "" {
		file, err := os.OpenFile(envCfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log file: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}
	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := logging.NewMetrics()

	hub := sim.NewHub(sim.Config{
		TickRate:            envCfg.TickRate,
		InventorySize:       envCfg.InventorySize,
		TrackableEnd:        envCfg.TrackableEnd,
		VerificationHorizon: envCfg.VerificationHorizon,
		Logger:              telemetryLogger,
		Metrics:             telemetry.WrapMetrics(metrics),
		Publisher:           router,
	})

	stop := make(chan struct{})
	go hub.RunLoop(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Publisher: router,
		Metrics:   metrics,
	})

	srv := &http.Server{Addr: envCfg.Addr, Handler: handler}
	telemetryLogger.Printf("server listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
