package reconcile

import (
	"context"

	"driftguard/server/logging"
)

const (
	// EventSlotResynced is emitted when a slot failed the ground-truth
	// comparison and was overwritten with the authoritative value.
	EventSlotResynced logging.EventType = "reconcile.slot_resynced"
	// EventWriteDeferred is emitted when a slot write raced an in-flight
	// server correction and was admitted without a verification deadline.
	EventWriteDeferred logging.EventType = "reconcile.write_deferred"
	// EventCorrectionRecorded is emitted when the server declares an
	// in-flight correction for a slot.
	EventCorrectionRecorded logging.EventType = "reconcile.correction_recorded"
)

// ResyncPayload captures both sides of a failed slot comparison.
type ResyncPayload struct {
	Slot          int    `json:"slot"`
	EngineType    string `json:"engineType"`
	EngineQty     int    `json:"engineQty"`
	AuthorityType string `json:"authorityType"`
	AuthorityQty  int    `json:"authorityQty"`
}

// DeferPayload captures the transaction race behind a deferred write.
type DeferPayload struct {
	Slot        int   `json:"slot"`
	Transaction int64 `json:"transaction"`
	Received    int64 `json:"received"`
}

// CorrectionPayload captures a recorded server correction marker.
type CorrectionPayload struct {
	Slot        int   `json:"slot"`
	Transaction int64 `json:"transaction"`
}

// SlotResynced publishes a warning event for a forced resync.
func SlotResynced(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ResyncPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSlotResynced,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}

// WriteDeferred publishes a debug event for a write racing a correction.
func WriteDeferred(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DeferPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventWriteDeferred,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}

// CorrectionRecorded publishes a debug event for a new correction marker.
func CorrectionRecorded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CorrectionPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCorrectionRecorded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryReconcile,
		Payload:  payload,
	})
}
