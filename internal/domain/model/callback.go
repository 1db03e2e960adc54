package model

import (
	"time"

	"github.com/google/uuid"
)

// CallbackEventType enumerates provider notification outcomes.
type CallbackEventType string

const (
	CallbackPaymentSucceeded CallbackEventType = "payment_succeeded"
	CallbackPaymentFailed    CallbackEventType = "payment_failed"
	CallbackPaymentCancelled CallbackEventType = "payment_cancelled"
)

// CallbackEvent records one received provider notification. Duplicates are
// recorded as separate rows; at most one event per (providerRef, eventType)
// pair causes an order transition.
type CallbackEvent struct {
	ID          uuid.UUID
	Provider    Provider
	ProviderRef string
	EventType   CallbackEventType
	RawPayload  []byte
	Verified    bool
	Processed   bool
	ReceivedAt  time.Time
}
