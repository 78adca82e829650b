//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/testutil"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// newTestPool starts a throwaway Postgres and applies every service schema.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("reusehub"),
		tcpostgres.WithUsername("reusehub"),
		tcpostgres.WithPassword("reusehub"),
		tcpostgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	for _, schema := range []string{"transaction", "item", "payment"} {
		m, err := migrate.New("file://migrations/"+schema, dsn+"&x-migrations-table=schema_migrations_"+schema)
		require.NoError(t, err)
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			t.Fatalf("migrate %s: %v", schema, err)
		}
		m.Close()
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newStoredTransaction(status transaction.Status) *transaction.Transaction {
	t := testutil.NewTestTransaction(status, 50000)
	t.ItemID = uuid.NewString()
	return t
}

func TestRepositories_Integration(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	t.Run("transaction round trip and CAS", func(t *testing.T) {
		repo := NewTransactionRepository(pool)
		tx := newStoredTransaction(transaction.StatusPending)
		require.NoError(t, repo.Create(ctx, tx))

		got, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, tx.ItemID, got.ItemID)
		assert.Equal(t, transaction.StatusPending, got.Status)
		assert.Equal(t, int64(50000), got.TotalAmount)
		assert.Equal(t, 0, got.Version)

		require.NoError(t, got.MarkReservationConfirmed(30*time.Minute))
		require.NoError(t, repo.Update(ctx, got, transaction.StatusPending))
		assert.Equal(t, 1, got.Version)

		stale := *tx
		stale.Status = transaction.StatusCancelled
		assert.ErrorIs(t, repo.Update(ctx, &stale, transaction.StatusPending), domainErrors.ErrStatusConflict)

		reloaded, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusPaymentPending, reloaded.Status)
	})

	t.Run("one active transaction per item and buyer", func(t *testing.T) {
		repo := NewTransactionRepository(pool)
		first := newStoredTransaction(transaction.StatusPending)
		require.NoError(t, repo.Create(ctx, first))

		second := testutil.NewTestTransaction(transaction.StatusPending, 50000)
		second.ItemID = first.ItemID
		err := repo.Create(ctx, second)
		assert.ErrorIs(t, err, domainErrors.ErrActiveTransactionExists)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidData)

		active, err := repo.FindActive(ctx, first.ItemID, first.BuyerID)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, first.ID, active.ID)

		none, err := repo.FindActive(ctx, uuid.NewString(), first.BuyerID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("list expired skips paid and future deadlines", func(t *testing.T) {
		repo := NewTransactionRepository(pool)
		past := time.Now().Add(-time.Minute)

		expired := newStoredTransaction(transaction.StatusPending)
		expired.ExpiresAt = &past
		paid := newStoredTransaction(transaction.StatusPaymentPending)
		paid.ExpiresAt = &past
		paidAt := time.Now()
		paid.PaidAt = &paidAt
		live := newStoredTransaction(transaction.StatusPending)

		for _, tx := range []*transaction.Transaction{expired, paid, live} {
			require.NoError(t, repo.Create(ctx, tx))
		}

		list, err := repo.ListExpired(ctx, time.Now(), 100)
		require.NoError(t, err)
		var ids []uuid.UUID
		for _, tx := range list {
			ids = append(ids, tx.ID)
		}
		assert.Contains(t, ids, expired.ID)
		assert.NotContains(t, ids, paid.ID)
		assert.NotContains(t, ids, live.ID)
	})

	t.Run("tx manager rolls back on error", func(t *testing.T) {
		repo := NewTransactionRepository(pool)
		tx := newStoredTransaction(transaction.StatusPending)
		boom := errors.New("boom")

		err := NewTxManager(pool).WithTransaction(ctx, func(txCtx context.Context) error {
			require.NoError(t, repo.Create(txCtx, tx))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = repo.GetByID(ctx, tx.ID)
		assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	})

	t.Run("item reservation is held by one transaction", func(t *testing.T) {
		repo := NewItemRepository(pool)
		it, err := item.NewItem(testutil.SellerID, "Used bicycle", 50000)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, it))

		ok, err := repo.Reserve(ctx, it.ID, "tx-a")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Reserve(ctx, it.ID, "tx-b")
		require.NoError(t, err)
		assert.False(t, ok, "second buyer loses")

		ok, err = repo.Release(ctx, it.ID, "tx-b")
		require.NoError(t, err)
		assert.False(t, ok, "only the holder releases")

		ok, err = repo.MarkSold(ctx, it.ID, "tx-a")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, item.StatusSold, got.Status)
		require.NotNil(t, got.ReservedByTransactionID)
		assert.Equal(t, "tx-a", *got.ReservedByTransactionID)

		_, err = repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domainErrors.ErrItemNotFound)
	})

	t.Run("payment status CAS", func(t *testing.T) {
		repo := NewPaymentRepository(pool)
		txID := uuid.NewString()
		p, err := payment.NewPayment(testutil.BuyerID, &txID, nil, 50000, "VND", "vnpay")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p))

		require.NoError(t, p.MarkCompleted("ref-1"))
		require.NoError(t, repo.Update(ctx, p, payment.StatusPending))

		again := *p
		assert.ErrorIs(t, repo.Update(ctx, &again, payment.StatusPending), domainErrors.ErrStatusConflict)

		got, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, got.Status)
		require.NotNil(t, got.ProviderReference)
		assert.Equal(t, "ref-1", *got.ProviderReference)

		_, err = repo.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	})
}
