package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"driftguard/server/internal/net/ws"
	"driftguard/server/internal/sim"
	"driftguard/server/logging"
)

type HTTPHandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
	Metrics   *logging.Metrics
}

// NewHTTPHandler assembles the server surface: the websocket endpoint plus
// health and diagnostics.
func NewHTTPHandler(hub *sim.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{
		Logger:    logger,
		Publisher: cfg.Publisher,
	})

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Tick       uint64            `json:"tick"`
			TickRate   int               `json:"tickRate"`
			Sessions   any               `json:"sessions"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Tick:       hub.Ticks().CurrentTick(),
			TickRate:   hub.TickRate(),
			Sessions:   hub.DiagnosticsSnapshot(),
			Telemetry:  cfg.Metrics.TelemetrySnapshot(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
		}
	})

	mux.HandleFunc("/ws", wsHandler.Handle)

	return mux
}
