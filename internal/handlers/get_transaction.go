package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=get_transaction.go -destination=get_transaction_mock.go -package=handlers

// TransactionGetter defines the interface that the service must implement.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error)
}

// NewGetTransactionHandler returns an HTTP handler for a single ledger row.
// @Summary Get transaction
// @Tags ledger
// @Produce json
// @Param customerID path string true "Customer ID (UUID)"
// @Param transactionID path string true "Transaction ID (UUID)"
// @Success 200 {object} models.Transaction
// @Failure 400 {object} models.ErrorResponse "Invalid customer or transaction ID"
// @Failure 404 {object} models.ErrorResponse "Transaction not found"
// @Failure 503 {object} models.ErrorResponse "Store unavailable"
// @Router /customers/{customerID}/transactions/{transactionID} [get]
func NewGetTransactionHandler(svc TransactionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := uuidParam(r, "customerID")
		if err != nil {
			logger.FromContext(ctx).Warnw("invalid customer id", "value", chi.URLParam(r, "customerID"))
			writeError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}
		transactionID, err := uuidParam(r, "transactionID")
		if err != nil {
			logger.FromContext(ctx).Warnw("invalid transaction id", "value", chi.URLParam(r, "transactionID"))
			writeError(w, http.StatusBadRequest, "Invalid transaction ID")
			return
		}

		tx, err := svc.GetTransaction(ctx, customerID, transactionID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, tx)
	}
}

// RegisterGetTransactionHandler registers the point lookup route
func RegisterGetTransactionHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/customers/{customerID}/transactions/{transactionID}", h)
}
