package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

const transactionColumns = `customer_id, transaction_id, amount, currency, transaction_type,
	merchant_name, description, status, balance_snapshot, transaction_timestamp`

// transactionRow mirrors bank_transactions. Rows created before the timestamp
// column existed carry NULL there.
type transactionRow struct {
	CustomerID           uuid.UUID       `db:"customer_id"`
	TransactionID        uuid.UUID       `db:"transaction_id"`
	Amount               decimal.Decimal `db:"amount"`
	Currency             string          `db:"currency"`
	TransactionType      string          `db:"transaction_type"`
	MerchantName         string          `db:"merchant_name"`
	Description          string          `db:"description"`
	Status               string          `db:"status"`
	BalanceSnapshot      decimal.Decimal `db:"balance_snapshot"`
	TransactionTimestamp sql.NullTime    `db:"transaction_timestamp"`
}

func (r transactionRow) toModel() models.Transaction {
	tx := models.Transaction{
		CustomerID:      r.CustomerID,
		TransactionID:   r.TransactionID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		TransactionType: models.TransactionType(r.TransactionType),
		MerchantName:    r.MerchantName,
		Description:     r.Description,
		Status:          r.Status,
		BalanceSnapshot: r.BalanceSnapshot,
	}
	if r.TransactionTimestamp.Valid {
		tx.TransactionTimestamp = r.TransactionTimestamp.Time.UTC()
	}
	return tx
}

// PostgresTransactionRepository stores ledgers in the bank_transactions table.
type PostgresTransactionRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresTransactionRepository creates a repository bounding each call by timeout.
func NewPostgresTransactionRepository(db *sqlx.DB, timeout time.Duration) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db, timeout: timeout}
}

// ListByCustomer returns the customer's rows newest first.
func (r *PostgresTransactionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE customer_id = $1
		ORDER BY transaction_id DESC
	`

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows, query, customerID)

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", []any{customerID},
		"rows", len(rows),
		"error", err,
	)

	if err != nil {
		return nil, storeError("list transactions", err)
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.toModel())
	}
	return txs, nil
}

// GetByID returns the matching row, or nil when there is none.
func (r *PostgresTransactionRepository) GetByID(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM bank_transactions
		WHERE customer_id = $1 AND transaction_id = $2
	`

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	var row transactionRow
	err := r.db.GetContext(ctx, &row, query, customerID, transactionID)

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", []any{customerID, transactionID},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get transaction", err)
	}

	tx := row.toModel()
	return &tx, nil
}

// Save appends tx. The primary key rejects a duplicate id within the customer.
func (r *PostgresTransactionRepository) Save(ctx context.Context, tx models.Transaction) error {
	const query = `
		INSERT INTO bank_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	args := []any{
		tx.CustomerID, tx.TransactionID, tx.Amount, tx.Currency, string(tx.TransactionType),
		tx.MerchantName, tx.Description, tx.Status, tx.BalanceSnapshot, tx.TransactionTimestamp,
	}

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", args,
		"result", rowsAffected,
		"error", err,
	)

	if err != nil {
		return storeError("save transaction", err)
	}
	return nil
}
