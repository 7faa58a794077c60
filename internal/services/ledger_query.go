package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=ledger_query.go -destination=ledger_query_mock.go -package=services

// TransactionReader defines range and point reads over a customer ledger.
type TransactionReader interface {
	// ListByCustomer returns rows in clustering order, newest first.
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error)
	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error)
}

// LedgerQueryService serves ledger reads.
type LedgerQueryService struct {
	reader     TransactionReader
	calculator BalanceCalculator
}

// NewLedgerQueryService creates a new LedgerQueryService. A nil calculator
// means FullScanCalculator.
func NewLedgerQueryService(reader TransactionReader, calculator BalanceCalculator) *LedgerQueryService {
	if calculator == nil {
		calculator = FullScanCalculator{}
	}
	return &LedgerQueryService{
		reader:     reader,
		calculator: calculator,
	}
}

// ListTransactions returns every transaction of the customer in store order.
// An unknown customer yields an empty slice.
func (s *LedgerQueryService) ListTransactions(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error) {
	txs, err := s.reader.ListByCustomer(ctx, customerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to list transactions", "customerID", customerID, "error", err)
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// GetTransaction returns a single transaction or models.ErrTransactionNotFound.
func (s *LedgerQueryService) GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.reader.GetByID(ctx, customerID, transactionID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to get transaction", "customerID", customerID, "transactionID", transactionID, "error", err)
		return nil, err
	}
	if tx == nil {
		logger.FromContext(ctx).Infow("transaction not found", "customerID", customerID, "transactionID", transactionID)
		return nil, models.ErrTransactionNotFound
	}
	return tx, nil
}

// GetBalance folds the customer's full history into a balance.
func (s *LedgerQueryService) GetBalance(ctx context.Context, customerID uuid.UUID) (*models.Balance, error) {
	txs, err := s.reader.ListByCustomer(ctx, customerID)
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to read ledger for balance", "customerID", customerID, "error", err)
		return nil, err
	}

	balance, currency := s.calculator.Calculate(txs)
	return &models.Balance{
		CustomerID: customerID,
		Balance:    balance,
		Currency:   currency,
	}, nil
}

// AuditLedger verifies the stored snapshots of the customer's ledger.
// It returns an error wrapping models.ErrInvariantViolation on the first mismatch.
func (s *LedgerQueryService) AuditLedger(ctx context.Context, customerID uuid.UUID) error {
	txs, err := s.reader.ListByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := VerifySnapshots(txs); err != nil {
		logger.FromContext(ctx).Warnw("ledger audit failed", "customerID", customerID, "rows", len(txs), "error", err)
		return err
	}
	logger.FromContext(ctx).Infow("ledger audit passed", "customerID", customerID, "rows", len(txs))
	return nil
}
