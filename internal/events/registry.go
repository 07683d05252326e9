package events

import (
	"encoding/json"
	"fmt"
)

// registry is the static type-tag mapping shared by every consumer of a
// topic. Payload resolution happens purely from the eventType field.
var registry = map[string]func() interface{}{
	EventTypeOrderCreated:          func() interface{} { return &OrderCreated{} },
	EventTypeOrderConfirmed:        func() interface{} { return &OrderConfirmed{} },
	EventTypeOrderCancelled:        func() interface{} { return &OrderCancelled{} },
	EventTypeStockReleaseRequested: func() interface{} { return &StockReleaseRequested{} },
	EventTypeStockReserved:         func() interface{} { return &StockReserved{} },
	EventTypeStockRejected:         func() interface{} { return &StockRejected{} },
	EventTypeStockReleased:         func() interface{} { return &StockReleased{} },
	EventTypePaymentSucceeded:      func() interface{} { return &PaymentSucceeded{} },
	EventTypePaymentFailed:         func() interface{} { return &PaymentFailed{} },
}

// Decode parses a raw broker message into an envelope and its typed payload.
// Unknown event types are not an error: ok is false and consumers skip the
// message, so new event kinds can be rolled out producer-first.
func Decode(raw []byte) (Envelope, interface{}, bool, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, nil, false, fmt.Errorf("decode envelope: %w", err)
	}
	factory, known := registry[env.EventType]
	if !known {
		return env, nil, false, nil
	}
	payload := factory()
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return Envelope{}, nil, false, fmt.Errorf("decode %s payload: %w", env.EventType, err)
	}
	return env, payload, true, nil
}
