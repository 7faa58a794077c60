package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

var errDB = fmt.Errorf("list: %w: %w", models.ErrStoreUnavailable, errors.New("connection refused"))

func TestLedgerQueryService_ListTransactions(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	tests := []struct {
		name      string
		rows      []models.Transaction
		err       error
		expectLen int
		expectErr error
	}{
		{
			name:      "returns store order",
			rows:      []models.Transaction{row(models.Credit, "2", "USD"), row(models.Credit, "1", "USD")},
			expectLen: 2,
		},
		{
			name:      "nil from store becomes empty slice",
			rows:      nil,
			expectLen: 0,
		},
		{
			name:      "store error is propagated",
			err:       errDB,
			expectErr: models.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			reader := NewMockTransactionReader(ctrl)
			reader.EXPECT().ListByCustomer(ctx, customerID).Return(tt.rows, tt.err)

			svc := NewLedgerQueryService(reader, nil)
			txs, err := svc.ListTransactions(ctx, customerID)

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, txs)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, txs)
			assert.Len(t, txs, tt.expectLen)
			if tt.expectLen > 0 {
				assert.Equal(t, tt.rows[0].TransactionID, txs[0].TransactionID)
			}
		})
	}
}

func TestLedgerQueryService_GetTransaction(t *testing.T) {
	ctx := context.Background()
	customerID, transactionID := uuid.New(), uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reader := NewMockTransactionReader(ctrl)
	svc := NewLedgerQueryService(reader, nil)

	t.Run("found", func(t *testing.T) {
		stored := &models.Transaction{CustomerID: customerID, TransactionID: transactionID}
		reader.EXPECT().GetByID(ctx, customerID, transactionID).Return(stored, nil)

		tx, err := svc.GetTransaction(ctx, customerID, transactionID)
		assert.NoError(t, err)
		assert.Equal(t, stored, tx)
	})

	t.Run("not found", func(t *testing.T) {
		reader.EXPECT().GetByID(ctx, customerID, transactionID).Return(nil, nil)

		tx, err := svc.GetTransaction(ctx, customerID, transactionID)
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, models.ErrTransactionNotFound)
	})

	t.Run("store error", func(t *testing.T) {
		reader.EXPECT().GetByID(ctx, customerID, transactionID).Return(nil, errDB)

		_, err := svc.GetTransaction(ctx, customerID, transactionID)
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, models.ErrTransactionNotFound)
	})
}

type fixedCalculator struct{}

func (fixedCalculator) Calculate([]models.Transaction) (decimal.Decimal, string) {
	return decimal.NewFromInt(42), "JPY"
}

func TestLedgerQueryService_GetBalance(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reader := NewMockTransactionReader(ctrl)

	t.Run("folds full history", func(t *testing.T) {
		reader.EXPECT().ListByCustomer(ctx, customerID).Return([]models.Transaction{
			row(models.Credit, "5.50", "USD"),
			row(models.Debit, "30.00", "USD"),
			row(models.Credit, "100.00", "USD"),
		}, nil)

		balance, err := NewLedgerQueryService(reader, nil).GetBalance(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, customerID, balance.CustomerID)
		assert.True(t, decimal.RequireFromString("75.50").Equal(balance.Balance))
		assert.Equal(t, "USD", balance.Currency)
	})

	t.Run("empty ledger", func(t *testing.T) {
		reader.EXPECT().ListByCustomer(ctx, customerID).Return([]models.Transaction{}, nil)

		balance, err := NewLedgerQueryService(reader, nil).GetBalance(ctx, customerID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
		assert.Equal(t, "USD", balance.Currency)
	})

	t.Run("custom calculator", func(t *testing.T) {
		reader.EXPECT().ListByCustomer(ctx, customerID).Return(nil, nil)

		balance, err := NewLedgerQueryService(reader, fixedCalculator{}).GetBalance(ctx, customerID)
		require.NoError(t, err)
		assert.Equal(t, "42", balance.Balance.String())
		assert.Equal(t, "JPY", balance.Currency)
	})

	t.Run("store error is not an empty balance", func(t *testing.T) {
		reader.EXPECT().ListByCustomer(ctx, customerID).Return(nil, errDB)

		balance, err := NewLedgerQueryService(reader, nil).GetBalance(ctx, customerID)
		assert.Nil(t, balance)
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	})
}

func TestLedgerQueryService_AuditLedger(t *testing.T) {
	ctx := context.Background()
	customerID := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reader := NewMockTransactionReader(ctrl)
	svc := NewLedgerQueryService(reader, nil)

	good := row(models.Credit, "10", "USD")
	good.BalanceSnapshot = decimal.NewFromInt(10)
	bad := row(models.Debit, "4", "USD")
	bad.BalanceSnapshot = decimal.NewFromInt(10)

	reader.EXPECT().ListByCustomer(ctx, customerID).Return([]models.Transaction{good}, nil)
	assert.NoError(t, svc.AuditLedger(ctx, customerID))

	reader.EXPECT().ListByCustomer(ctx, customerID).Return([]models.Transaction{bad, good}, nil)
	assert.ErrorIs(t, svc.AuditLedger(ctx, customerID), models.ErrInvariantViolation)

	reader.EXPECT().ListByCustomer(ctx, customerID).Return(nil, errDB)
	assert.ErrorIs(t, svc.AuditLedger(ctx, customerID), models.ErrStoreUnavailable)
}
