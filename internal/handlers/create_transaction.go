package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=create_transaction.go -destination=create_transaction_mock.go -package=handlers

// TransactionCreator defines the interface that the service must implement.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, customerID uuid.UUID, req models.CreateTransactionRequest) (*models.Transaction, error)
}

// NewCreateTransactionHandler returns an HTTP handler appending a ledger row.
// @Summary Create transaction
// @Description Appends a transaction and records the resulting balance snapshot.
// @Tags ledger
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID (UUID)"
// @Param request body models.CreateTransactionRequest true "Transaction"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 503 {object} models.ErrorResponse "Store unavailable"
// @Router /customers/{customerID}/transactions [post]
func NewCreateTransactionHandler(svc TransactionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := uuidParam(r, "customerID")
		if err != nil {
			logger.FromContext(ctx).Warnw("invalid customer id", "value", chi.URLParam(r, "customerID"))
			writeError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}

		var req models.CreateTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.FromContext(ctx).Warnw("failed to decode transaction request", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		tx, err := svc.CreateTransaction(ctx, customerID, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, tx)
	}
}

// RegisterCreateTransactionHandler registers the append route
func RegisterCreateTransactionHandler(r chi.Router, h http.HandlerFunc) {
	r.Post("/customers/{customerID}/transactions", h)
}
