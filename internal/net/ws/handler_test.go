package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"driftguard/server/internal/net/proto"
	"driftguard/server/internal/sim"
)

func dialTestServer(t *testing.T, hub *sim.Hub) (*websocket.Conn, proto.JoinedMessage) {
	t.Helper()

	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)

	wsURL, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse test server url: %v", err)
	}
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})

	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read joined message: %v", err)
	}
	var joined proto.JoinedMessage
	if err := json.Unmarshal(payload, &joined); err != nil {
		t.Fatalf("failed to decode joined message: %v", err)
	}
	if joined.Type != proto.TypeJoined {
		t.Fatalf("expected joined message, got %q", joined.Type)
	}
	return conn, joined
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

func TestJoinedMessageDescribesSession(t *testing.T) {
	hub := sim.NewHub(sim.DefaultConfig())
	_, joined := dialTestServer(t, hub)

	if joined.InventorySize != 46 {
		t.Fatalf("expected inventory size 46, got %d", joined.InventorySize)
	}
	id, err := uuid.Parse(joined.SessionID)
	if err != nil {
		t.Fatalf("expected parseable session id, got %q", joined.SessionID)
	}
	if _, ok := hub.Runtime(id); !ok {
		t.Fatalf("expected hub to track the joined session")
	}
}

func TestSlotSetReachesReconciler(t *testing.T) {
	hub := sim.NewHub(sim.DefaultConfig())
	conn, joined := dialTestServer(t, hub)
	id, _ := uuid.Parse(joined.SessionID)
	runtime, _ := hub.Runtime(id)

	slot := 4
	msg := proto.ClientMessage{
		Ver:  proto.ProtocolVersion,
		Type: proto.TypeSlotSet,
		Slot: &slot,
		Item: &proto.ItemPayload{Type: "stone", Quantity: 32},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send slot_set: %v", err)
	}

	waitFor(t, func() bool {
		return runtime.Reconciler.Item(4).Type == "stone"
	}, "slot write to reach the reconciler")
}

func TestTransactionAckAdvancesSession(t *testing.T) {
	hub := sim.NewHub(sim.DefaultConfig())
	conn, joined := dialTestServer(t, hub)
	id, _ := uuid.Parse(joined.SessionID)
	runtime, _ := hub.Runtime(id)

	transaction := int64(42)
	msg := proto.ClientMessage{
		Ver:         proto.ProtocolVersion,
		Type:        proto.TypeTransactionAck,
		Transaction: &transaction,
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send ack: %v", err)
	}

	waitFor(t, func() bool {
		return runtime.Session.LastTransactionReceived() == 42
	}, "acknowledgement to reach the session")
}

func TestUnknownMessageIsRejected(t *testing.T) {
	hub := sim.NewHub(sim.DefaultConfig())
	conn, _ := dialTestServer(t, hub)

	if err := conn.WriteJSON(proto.ClientMessage{Ver: proto.ProtocolVersion, Type: "bogus"}); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read reject: %v", err)
	}
	var reject proto.RejectMessage
	if err := json.Unmarshal(payload, &reject); err != nil {
		t.Fatalf("failed to decode reject: %v", err)
	}
	if reject.Type != proto.TypeReject {
		t.Fatalf("expected reject message, got %q", reject.Type)
	}
}

func TestDisconnectDetachesSession(t *testing.T) {
	hub := sim.NewHub(sim.DefaultConfig())
	conn, joined := dialTestServer(t, hub)
	id, _ := uuid.Parse(joined.SessionID)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool {
		_, ok := hub.Runtime(id)
		return !ok
	}, "session to detach after disconnect")
}
