package reservation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LuongTanDat03/reuse-hub-sub000/internal/application/reservation"
	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/event"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, items ...*item.Item) (*reservation.Handler, *testutil.MockItemRepository, *testutil.MockPublisher) {
	t.Helper()
	repo := testutil.NewMockItemRepository()
	for _, it := range items {
		require.NoError(t, repo.Create(context.Background(), it))
	}
	pub := testutil.NewMockPublisher()
	return reservation.NewHandler(repo, pub, testutil.Messaging(), nil, zerolog.Nop()), repo, pub
}

func lifecycle(eventType event.TransactionEventType, txID string) event.TransactionEventMessage {
	return event.NewTransactionEvent(eventType, event.TransactionSnapshot{
		TransactionID: txID,
		BuyerID:       testutil.BuyerID,
		SellerID:      testutil.SellerID,
		ItemID:        testutil.ItemID,
		Quantity:      1,
	}, "")
}

func onlyReply(t *testing.T, pub *testutil.MockPublisher) (string, event.ItemReservationEvent) {
	t.Helper()
	all := pub.All()
	require.Len(t, all, 1)
	assert.Equal(t, "reusehub.saga", all[0].Exchange)
	return all[0].RoutingKey, all[0].Payload.(event.ItemReservationEvent)
}

func TestReserve_Available(t *testing.T) {
	h, repo, pub := newHandler(t, testutil.NewTestItem(item.StatusAvailable, 100000))

	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1")))

	stored := repo.Stored(testutil.ItemID)
	assert.Equal(t, item.StatusReserved, stored.Status)
	assert.True(t, stored.IsHeldBy("tx-1"))

	key, reply := onlyReply(t, pub)
	assert.Equal(t, "item.reserved", key)
	assert.True(t, reply.Success)
	assert.Equal(t, "tx-1", reply.TransactionID)
}

func TestReserve_Failures(t *testing.T) {
	tests := []struct {
		name   string
		items  []*item.Item
		reason string
	}{
		{"unknown item", nil, "Item not found"},
		{"already reserved", []*item.Item{testutil.NewTestItem(item.StatusReserved, 1)}, "Item is not available"},
		{"sold", []*item.Item{testutil.NewTestItem(item.StatusSold, 1)}, "Item is not available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, pub := newHandler(t, tt.items...)

			require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1")))

			key, reply := onlyReply(t, pub)
			assert.Equal(t, "item.reservation-failed", key)
			assert.False(t, reply.Success)
			assert.Equal(t, tt.reason, reply.Message)
		})
	}
}

func TestReserve_RedeliveryRepliesSuccessAgain(t *testing.T) {
	h, _, pub := newHandler(t, testutil.NewTestItem(item.StatusAvailable, 1))
	ev := lifecycle(event.TransactionCreated, "tx-1")

	require.NoError(t, h.Handle(context.Background(), ev))
	require.NoError(t, h.Handle(context.Background(), ev))

	replies := pub.ByKey("item.reserved")
	assert.Len(t, replies, 2)
	assert.Empty(t, pub.ByKey("item.reservation-failed"))
}

func TestReserve_TwoBuyersOneWinner(t *testing.T) {
	h, repo, pub := newHandler(t, testutil.NewTestItem(item.StatusAvailable, 1))

	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1")))
	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-2")))

	assert.True(t, repo.Stored(testutil.ItemID).IsHeldBy("tx-1"))
	assert.Len(t, pub.ByKey("item.reserved"), 1)
	failed := pub.ByKey("item.reservation-failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "tx-2", failed[0].(event.ItemReservationEvent).TransactionID)
}

func TestReserve_LostRace(t *testing.T) {
	h, repo, pub := newHandler(t, testutil.NewTestItem(item.StatusAvailable, 1))
	repo.ReserveFunc = func(ctx context.Context, id, transactionID string) (bool, error) {
		repo.ReserveFunc = nil
		_, err := repo.Reserve(ctx, id, "tx-rival")
		return false, err
	}

	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1")))

	key, reply := onlyReply(t, pub)
	assert.Equal(t, "item.reservation-failed", key)
	assert.Equal(t, "Item is not available", reply.Message)
}

func TestReserve_ReplyFailureIsReturned(t *testing.T) {
	h, repo, pub := newHandler(t, testutil.NewTestItem(item.StatusAvailable, 1))
	pub.PublishFunc = func(context.Context, string, string, any) error {
		return domainErrors.ErrPublishFailed
	}

	err := h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrPublishFailed)

	// The reservation stands; the redelivery re-replies.
	assert.True(t, repo.Stored(testutil.ItemID).IsHeldBy("tx-1"))
	pub.PublishFunc = nil
	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCreated, "tx-1")))
	assert.Len(t, pub.ByKey("item.reserved"), 1)
}

func TestRelease(t *testing.T) {
	holder := "tx-1"
	held := testutil.NewTestItem(item.StatusReserved, 1)
	held.ReservedByTransactionID = &holder
	h, repo, pub := newHandler(t, held)

	// A stale cancellation for another transaction leaves the reservation alone.
	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCancelled, "tx-other")))
	assert.True(t, repo.Stored(testutil.ItemID).IsHeldBy("tx-1"))

	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCancelled, "tx-1")))
	stored := repo.Stored(testutil.ItemID)
	assert.Equal(t, item.StatusAvailable, stored.Status)
	assert.Nil(t, stored.ReservedByTransactionID)

	// Redelivery is harmless.
	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCancelled, "tx-1")))
	assert.Empty(t, pub.All(), "settling never replies")
}

func TestMarkSold(t *testing.T) {
	holder := "tx-1"
	held := testutil.NewTestItem(item.StatusReserved, 1)
	held.ReservedByTransactionID = &holder
	h, repo, _ := newHandler(t, held)

	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCompleted, "tx-1")))
	assert.Equal(t, item.StatusSold, repo.Stored(testutil.ItemID).Status)

	// A late cancellation cannot un-sell the item.
	require.NoError(t, h.Handle(context.Background(), lifecycle(event.TransactionCancelled, "tx-1")))
	assert.Equal(t, item.StatusSold, repo.Stored(testutil.ItemID).Status)
}

func TestSettle_UnknownItem(t *testing.T) {
	h, _, _ := newHandler(t)

	err := h.Handle(context.Background(), lifecycle(event.TransactionCancelled, "tx-1"))
	assert.True(t, errors.Is(err, domainErrors.ErrItemNotFound))
}

func TestHandle_UnknownEventType(t *testing.T) {
	h, _, _ := newHandler(t)

	err := h.Handle(context.Background(), lifecycle("REFUNDED", "tx-1"))
	assert.ErrorIs(t, err, domainErrors.ErrMalformedMessage)
}

func TestBoost(t *testing.T) {
	repo := testutil.NewMockItemRepository()
	it := testutil.NewTestItem(item.StatusAvailable, 1)
	require.NoError(t, repo.Create(context.Background(), it))
	h := reservation.NewBoostHandler(repo, 24*time.Hour, zerolog.Nop())

	purchase := event.NewPaymentEvent(event.PaymentInfo{
		PaymentID: "pay-1", LinkedItemID: testutil.ItemID, LinkedTransactionID: "tx-1", Amount: 1,
	})
	require.NoError(t, h.Handle(context.Background(), purchase))
	assert.Nil(t, repo.Stored(testutil.ItemID).BoostedUntil, "purchase payments do not boost")

	boost := event.NewPaymentEvent(event.PaymentInfo{PaymentID: "pay-2", LinkedItemID: testutil.ItemID, Amount: 1})
	require.NoError(t, h.Handle(context.Background(), boost))

	until := repo.Stored(testutil.ItemID).BoostedUntil
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *until, time.Minute)
}

func TestBoost_UnknownItem(t *testing.T) {
	h := reservation.NewBoostHandler(testutil.NewMockItemRepository(), time.Hour, zerolog.Nop())

	err := h.Handle(context.Background(), event.NewPaymentEvent(event.PaymentInfo{PaymentID: "pay-1", LinkedItemID: "gone"}))
	assert.ErrorIs(t, err, domainErrors.ErrItemNotFound)
}
