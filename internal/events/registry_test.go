package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_AssignsEnvelopeFields(t *testing.T) {
	orderID := uuid.New()

	env, err := Wrap(EventTypeOrderCreated, OrderCreated{OrderID: orderID}, orderID)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, env.EventID)
	assert.Equal(t, EventTypeOrderCreated, env.EventType)
	assert.Equal(t, orderID, env.CorrelationID)
	assert.Equal(t, env.CorrelationID, env.CausationID)
	assert.Equal(t, 1, env.Version)
	assert.False(t, env.OccurredAt.IsZero())
}

func TestWrapCaused_ChainsCausation(t *testing.T) {
	orderID := uuid.New()
	cause, err := Wrap(EventTypeOrderCreated, OrderCreated{OrderID: orderID}, orderID)
	require.NoError(t, err)

	env, err := WrapCaused(EventTypeStockReserved, StockReserved{OrderID: orderID}, orderID, cause.EventID)

	require.NoError(t, err)
	assert.Equal(t, cause.EventID, env.CausationID)
	assert.Equal(t, orderID, env.CorrelationID)
	assert.NotEqual(t, cause.EventID, env.EventID)
}

func TestDecode_RoundTrip(t *testing.T) {
	orderID := uuid.New()
	env, err := Wrap(EventTypePaymentFailed, PaymentFailed{
		OrderID: orderID,
		Amount:  4999,
		Reason:  "Payment declined by provider",
	}, orderID)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, payload, ok, err := Decode(raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, env.EventID, decoded.EventID)

	failed, isFailed := payload.(*PaymentFailed)
	require.True(t, isFailed)
	assert.Equal(t, orderID, failed.OrderID)
	assert.Equal(t, int64(4999), failed.Amount)
	assert.Equal(t, "Payment declined by provider", failed.Reason)
}

func TestDecode_UnknownTypeIsSkippedNotFailed(t *testing.T) {
	raw := []byte(`{"eventId":"` + uuid.NewString() + `","eventType":"WarehouseRestocked","version":1,"payload":{}}`)

	env, payload, ok, err := Decode(raw)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, payload)
	assert.Equal(t, "WarehouseRestocked", env.EventType)
}

func TestDecode_MalformedEnvelope(t *testing.T) {
	_, _, ok, err := Decode([]byte("not json"))

	require.Error(t, err)
	assert.False(t, ok)
}

func TestEnvelope_CamelCaseWireFormat(t *testing.T) {
	orderID := uuid.New()
	env, err := Wrap(EventTypeOrderConfirmed, OrderConfirmed{OrderID: orderID}, orderID)
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"eventId", "eventType", "occurredAt", "correlationId", "causationId", "version", "payload"} {
		assert.Contains(t, fields, key)
	}
}
