// Package ws accepts client connections and feeds their packets into the
// reconciliation engine. Packet handling runs on the connection's read
// goroutine, concurrently with the simulation tick loop.
package ws

import (
	"context"
	"encoding/json"
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"driftguard/server/internal/net/proto"
	"driftguard/server/internal/sim"
	"driftguard/server/logging"
	lognetwork "driftguard/server/logging/network"
)

type HandlerConfig struct {
	Logger    *log.Logger
	Publisher logging.Publisher
}

type Handler struct {
	hub       *sim.Hub
	logger    *log.Logger
	publisher logging.Publisher
	upgrader  websocket.Upgrader
}

func NewHandler(hub *sim.Hub, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:       hub,
		logger:    logger,
		publisher: publisher,
		upgrader:  upgrader,
	}
}

// Handle upgrades the request and serves the session until the connection
// drops. Session state, ledger included, dies with the connection.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	runtime := h.hub.Attach()
	defer h.hub.Detach(runtime.Session.ID())

	sess := newSessionConn(conn)
	joined := proto.JoinedMessage{
		Ver:           proto.ProtocolVersion,
		Type:          proto.TypeJoined,
		SessionID:     runtime.Session.ID().String(),
		InventorySize: runtime.Reconciler.Size(),
		Tick:          h.hub.Ticks().CurrentTick(),
	}
	if err := sess.writeJSON(joined); err != nil {
		h.logger.Printf("failed to greet session %s: %v", runtime.Session.ID(), err)
		conn.Close()
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return
		}

		var msg proto.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			sess.reject("malformed message")
			continue
		}
		if reason := h.dispatch(runtime, msg); reason != "" {
			sess.reject(reason)
		}
	}
}

// dispatch routes one client message into the engine. It returns a reject
// reason for messages the protocol cannot apply, empty on success.
func (h *Handler) dispatch(runtime *sim.Runtime, msg proto.ClientMessage) string {
	switch msg.Type {
	case proto.TypeSlotSet:
		if msg.Slot == nil {
			return "slot_set requires slot"
		}
		runtime.Reconciler.SetItem(*msg.Slot, msg.Item.Stack())
		return ""
	case proto.TypeSlotClaim:
		if msg.Slot == nil {
			return "slot_claim requires slot"
		}
		runtime.Reconciler.RecordClientClaim(*msg.Slot)
		return ""
	case proto.TypeTransactionAck:
		if msg.Transaction == nil {
			return "transaction_ack requires transaction"
		}
		h.recordAck(runtime, *msg.Transaction)
		return ""
	default:
		return "unknown message type"
	}
}

func (h *Handler) recordAck(runtime *sim.Runtime, transaction int64) {
	actor := logging.EntityRef{ID: runtime.Session.ID().String(), Kind: logging.EntityKindSession}
	previous := runtime.Session.LastTransactionReceived()
	payload := lognetwork.AckPayload{Previous: previous, Ack: transaction}
	if runtime.Session.RecordTransactionReceived(transaction) {
		lognetwork.AckAdvanced(context.Background(), h.publisher, h.hub.Ticks().CurrentTick(), actor, payload)
		return
	}
	lognetwork.AckRegression(context.Background(), h.publisher, h.hub.Ticks().CurrentTick(), actor, payload)
}
