// Package proto defines the wire shapes of the demo reconciliation protocol.
// The engine itself is transport-agnostic; these messages exist so the
// bundled server can exercise it end to end.
package proto

import "driftguard/server/internal/items"

// ProtocolVersion is stamped on every message.
const ProtocolVersion = 1

// Client message types.
const (
	TypeSlotSet        = "slot_set"
	TypeSlotClaim      = "slot_claim"
	TypeTransactionAck = "transaction_ack"
)

// Server message types.
const (
	TypeJoined = "joined"
	TypeReject = "reject"
)

// ItemPayload mirrors items.ItemStack on the wire.
type ItemPayload struct {
	Type           string `json:"type"`
	FungibilityKey string `json:"fungibility_key,omitempty"`
	Quantity       int    `json:"quantity"`
}

// Stack converts the payload to its engine representation.
func (p *ItemPayload) Stack() items.ItemStack {
	if p == nil {
		return items.ItemStack{}
	}
	return items.ItemStack{
		Type:           p.Type,
		FungibilityKey: p.FungibilityKey,
		Quantity:       p.Quantity,
	}
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	Ver         int          `json:"ver,omitempty"`
	Type        string       `json:"type"`
	Slot        *int         `json:"slot,omitempty"`
	Item        *ItemPayload `json:"item,omitempty"`
	Transaction *int64       `json:"transaction,omitempty"`
}

// JoinedMessage greets a freshly attached session.
type JoinedMessage struct {
	Ver           int    `json:"ver"`
	Type          string `json:"type"`
	SessionID     string `json:"sessionId"`
	InventorySize int    `json:"inventorySize"`
	Tick          uint64 `json:"tick"`
}

// RejectMessage reports a malformed or unsupported client message.
type RejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
