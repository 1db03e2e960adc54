package model

import (
	"time"

	"github.com/google/uuid"
)

// Provider identifies an external payment gateway.
type Provider string

const (
	ProviderMobileMoney Provider = "mobile_money"
	ProviderCard        Provider = "card"
)

// OrderState describes checkout payment lifecycle.
type OrderState string

const (
	OrderStateCreated              OrderState = "CREATED"
	OrderStateCustomerPending      OrderState = "CUSTOMER_PENDING"
	OrderStateCustomerReady        OrderState = "CUSTOMER_READY"
	OrderStatePaymentPending       OrderState = "PAYMENT_PENDING"
	OrderStateAwaitingConfirmation OrderState = "AWAITING_CONFIRMATION"
	OrderStateCaptured             OrderState = "CAPTURED"
	OrderStateFailed               OrderState = "FAILED"
	OrderStateCancelled            OrderState = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderStateCaptured, OrderStateFailed, OrderStateCancelled:
		return true
	}
	return false
}

// transitions lists the forward edges of the lifecycle. Failed and Cancelled
// are reachable from every non-terminal state and are not listed here.
var transitions = map[OrderState][]OrderState{
	OrderStateCreated:              {OrderStateCustomerPending},
	OrderStateCustomerPending:      {OrderStateCustomerReady},
	OrderStateCustomerReady:        {OrderStatePaymentPending},
	OrderStatePaymentPending:       {OrderStateAwaitingConfirmation, OrderStateCaptured},
	OrderStateAwaitingConfirmation: {OrderStateCaptured},
}

// CanTransition reports whether moving from one state to the next is legal.
func CanTransition(from, to OrderState) bool {
	if from.Terminal() {
		return false
	}
	if to == OrderStateFailed || to == OrderStateCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is the durable record of one checkout payment. Terminal orders are
// retained for audit and reconciliation, never deleted.
type Order struct {
	ID               uuid.UUID
	IdempotencyKey   string
	Provider         Provider
	Amount           int64
	Currency         string
	CustomerRef      *string
	ProviderRef      *string
	RedirectURL      *string
	State            OrderState
	Attempts         int
	LastErrorCode    *string
	LastErrorMessage *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
