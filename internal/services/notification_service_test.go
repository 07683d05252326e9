package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/events"
)

func TestHandleOrderConfirmed_StoresNotification(t *testing.T) {
	repo := &memNotificationRepo{}
	svc := NewNotificationService(&fakeTxManager{}, repo, newMemProcessedRepo(), testLogger())
	orderID := uuid.New()
	env, _ := events.Wrap(events.EventTypeOrderConfirmed, events.OrderConfirmed{OrderID: orderID}, orderID)

	err := svc.HandleOrderConfirmed(context.Background(), env, &events.OrderConfirmed{OrderID: orderID})

	require.NoError(t, err)
	require.Len(t, repo.notifications, 1)
	assert.Equal(t, orderID, repo.notifications[0].OrderID)
	assert.Equal(t, events.EventTypeOrderConfirmed, repo.notifications[0].EventType)
	assert.Contains(t, repo.notifications[0].Message, "confirmed")
}

func TestHandleOrderCancelled_IncludesReason(t *testing.T) {
	repo := &memNotificationRepo{}
	svc := NewNotificationService(&fakeTxManager{}, repo, newMemProcessedRepo(), testLogger())
	orderID := uuid.New()
	env, _ := events.Wrap(events.EventTypeOrderCancelled, events.OrderCancelled{OrderID: orderID}, orderID)

	err := svc.HandleOrderCancelled(context.Background(), env, &events.OrderCancelled{
		OrderID: orderID,
		Reason:  "Payment declined by provider",
	})

	require.NoError(t, err)
	require.Len(t, repo.notifications, 1)
	assert.Contains(t, repo.notifications[0].Message, "Payment declined by provider")
}

func TestNotification_DuplicateDeliveryStoresOnce(t *testing.T) {
	repo := &memNotificationRepo{}
	svc := NewNotificationService(&fakeTxManager{}, repo, newMemProcessedRepo(), testLogger())
	orderID := uuid.New()
	env, _ := events.Wrap(events.EventTypeOrderConfirmed, events.OrderConfirmed{OrderID: orderID}, orderID)

	require.NoError(t, svc.HandleOrderConfirmed(context.Background(), env, &events.OrderConfirmed{OrderID: orderID}))
	require.NoError(t, svc.HandleOrderConfirmed(context.Background(), env, &events.OrderConfirmed{OrderID: orderID}))

	assert.Len(t, repo.notifications, 1)
}

func TestNotification_StoreFailurePropagates(t *testing.T) {
	repo := &memNotificationRepo{createErr: errBoom}
	processed := newMemProcessedRepo()
	svc := NewNotificationService(&fakeTxManager{}, repo, processed, testLogger())
	orderID := uuid.New()
	env, _ := events.Wrap(events.EventTypeOrderConfirmed, events.OrderConfirmed{OrderID: orderID}, orderID)

	err := svc.HandleOrderConfirmed(context.Background(), env, &events.OrderConfirmed{OrderID: orderID})

	assert.ErrorIs(t, err, errBoom)
}
