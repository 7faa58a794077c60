package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

func newTx(t *testing.T, customerID uuid.UUID, amount string) models.Transaction {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return models.Transaction{
		CustomerID:      customerID,
		TransactionID:   id,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "USD",
		TransactionType: models.Credit,
		BalanceSnapshot: decimal.RequireFromString(amount),
	}
}

func TestMemoryTransactionRepository_OrderAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepository()
	customerID := uuid.New()

	first := newTx(t, customerID, "10.00")
	second := newTx(t, customerID, "20.00")
	third := newTx(t, customerID, "30.00")

	// inserted out of order on purpose
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, third))
	require.NoError(t, repo.Save(ctx, first))

	t.Run("list is newest first", func(t *testing.T) {
		txs, err := repo.ListByCustomer(ctx, customerID)
		assert.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, third.TransactionID, txs[0].TransactionID)
		assert.Equal(t, second.TransactionID, txs[1].TransactionID)
		assert.Equal(t, first.TransactionID, txs[2].TransactionID)
	})

	t.Run("list returns a copy", func(t *testing.T) {
		txs, err := repo.ListByCustomer(ctx, customerID)
		require.NoError(t, err)
		txs[0].Status = "MUTATED"

		again, err := repo.ListByCustomer(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, "", again[0].Status)
	})

	t.Run("get existing", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, customerID, second.TransactionID)
		assert.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, second, *tx)
	})

	t.Run("get missing", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, customerID, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, tx)
	})

	t.Run("get from other customer", func(t *testing.T) {
		tx, err := repo.GetByID(ctx, uuid.New(), second.TransactionID)
		assert.NoError(t, err)
		assert.Nil(t, tx)
	})

	t.Run("unknown customer is empty", func(t *testing.T) {
		txs, err := repo.ListByCustomer(ctx, uuid.New())
		assert.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := repo.Save(ctx, first)
		assert.Error(t, err)
	})
}

func TestMemoryTransactionRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryTransactionRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListByCustomer(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = repo.GetByID(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	err = repo.Save(ctx, newTx(t, uuid.New(), "1"))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryTransactionRepository_ConcurrentSave(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepository()
	customerID := uuid.New()

	const n = 200
	rows := make([]models.Transaction, n)
	for i := range rows {
		rows[i] = newTx(t, customerID, "1")
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for _, tx := range rows {
		go func(tx models.Transaction) {
			defer wg.Done()
			assert.NoError(t, repo.Save(ctx, tx))
		}(tx)
	}
	wg.Wait()

	txs, err := repo.ListByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Len(t, txs, n)
	for i := 1; i < len(txs); i++ {
		assert.True(t, txs[i-1].TransactionID.String() > txs[i].TransactionID.String(), "rows must be strictly descending")
	}
}
