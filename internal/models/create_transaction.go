package models

import "github.com/shopspring/decimal"

// CreateTransactionRequest represents the JSON body for appending a transaction
// swagger:model CreateTransactionRequest
type CreateTransactionRequest struct {
	// Positive magnitude; the sign is carried by transaction_type
	// required: true
	// example: 100.00
	Amount decimal.Decimal `json:"amount"`

	// Currency code
	// required: true
	// example: USD
	Currency string `json:"currency"`

	// CREDIT or DEBIT, case-insensitive
	// required: true
	// example: CREDIT
	TransactionType string `json:"transaction_type"`

	// Merchant name
	// example: Coffee Shop
	MerchantName string `json:"merchant_name"`

	// Free-form description
	// example: Morning coffee
	Description string `json:"description"`

	// Status
	// example: COMPLETED
	Status string `json:"status"`
}

// ErrorResponse represents an error returned by any ledger endpoint
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: Transaction not found
	Error string `json:"error"`
}

// MessageResponse represents a plain informational response
// swagger:model MessageResponse
type MessageResponse struct {
	// Message
	// example: Welcome to the Bank Transactions API
	Message string `json:"message"`
}
