package model

import "testing"

func TestOrderStateTerminal(t *testing.T) {
	cases := []struct {
		state    OrderState
		terminal bool
	}{
		{OrderStateCreated, false},
		{OrderStateCustomerPending, false},
		{OrderStateCustomerReady, false},
		{OrderStatePaymentPending, false},
		{OrderStateAwaitingConfirmation, false},
		{OrderStateCaptured, true},
		{OrderStateFailed, true},
		{OrderStateCancelled, true},
	}

	for _, tc := range cases {
		if tc.state.Terminal() != tc.terminal {
			t.Fatalf("%s: expected terminal=%v", tc.state, tc.terminal)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderState
		to      OrderState
		allowed bool
	}{
		{"begin", OrderStateCreated, OrderStateCustomerPending, true},
		{"customer created", OrderStateCustomerPending, OrderStateCustomerReady, true},
		{"intent created", OrderStateCustomerReady, OrderStatePaymentPending, true},
		{"capture in flight", OrderStatePaymentPending, OrderStateAwaitingConfirmation, true},
		{"async confirm", OrderStatePaymentPending, OrderStateCaptured, true},
		{"sync capture", OrderStateAwaitingConfirmation, OrderStateCaptured, true},
		{"fail from any non-terminal", OrderStateCustomerPending, OrderStateFailed, true},
		{"cancel before capture", OrderStatePaymentPending, OrderStateCancelled, true},
		{"no skipping ahead", OrderStateCreated, OrderStatePaymentPending, false},
		{"no backward", OrderStatePaymentPending, OrderStateCustomerReady, false},
		{"captured is final", OrderStateCaptured, OrderStateFailed, false},
		{"failed is final", OrderStateFailed, OrderStateCaptured, false},
		{"cancelled is final", OrderStateCancelled, OrderStateCancelled, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.allowed {
				t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
			}
		})
	}
}
