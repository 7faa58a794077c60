package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is reported for a ledger whose rows carry no currency.
const DefaultCurrency = "USD"

// TransactionType determines the sign applied to an amount during balance folding.
type TransactionType string

// Supported transaction types
const (
	Credit TransactionType = "CREDIT"
	Debit  TransactionType = "DEBIT"
)

// NormalizeTransactionType trims and upper-cases a raw type value.
func NormalizeTransactionType(raw string) TransactionType {
	return TransactionType(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether t is CREDIT or DEBIT.
func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// Transaction is a single immutable row of a customer ledger.
// swagger:model Transaction
type Transaction struct {
	CustomerID           uuid.UUID       `json:"customer_id" db:"customer_id"`                     // Ledger partition
	TransactionID        uuid.UUID       `json:"transaction_id" db:"transaction_id"`               // Time-ordered identifier, unique per customer
	Amount               decimal.Decimal `json:"amount" db:"amount"`                               // Non-negative magnitude
	Currency             string          `json:"currency" db:"currency"`                           // Unit of account, advisory per row
	TransactionType      TransactionType `json:"transaction_type" db:"transaction_type"`           // CREDIT or DEBIT
	MerchantName         string          `json:"merchant_name" db:"merchant_name"`                 // Opaque
	Description          string          `json:"description" db:"description"`                     // Opaque
	Status               string          `json:"status" db:"status"`                               // Opaque
	BalanceSnapshot      decimal.Decimal `json:"balance_snapshot" db:"balance_snapshot"`           // Running balance after this row
	TransactionTimestamp time.Time       `json:"transaction_timestamp" db:"transaction_timestamp"` // Advisory creation time
}

// Balance is the folded balance of one customer ledger.
// swagger:model BalanceResponse
type Balance struct {
	// Customer identifier
	CustomerID uuid.UUID `json:"customer_id"`

	// Folded balance
	// example: 75.50
	Balance decimal.Decimal `json:"balance"`

	// Currency of the most recently read row
	// example: USD
	Currency string `json:"currency"`
}
