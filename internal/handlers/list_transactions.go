package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=list_transactions.go -destination=list_transactions_mock.go -package=handlers

// TransactionLister defines the interface that the service must implement.
type TransactionLister interface {
	ListTransactions(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error)
}

// NewListTransactionsHandler returns an HTTP handler listing a customer's ledger.
// @Summary List transactions
// @Description Returns every transaction of the customer, newest first. An unknown customer yields an empty list.
// @Tags ledger
// @Produce json
// @Param customerID path string true "Customer ID (UUID)"
// @Success 200 {array} models.Transaction
// @Failure 400 {object} models.ErrorResponse "Invalid customer ID"
// @Failure 503 {object} models.ErrorResponse "Store unavailable"
// @Router /customers/{customerID}/transactions [get]
func NewListTransactionsHandler(svc TransactionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := uuidParam(r, "customerID")
		if err != nil {
			logger.FromContext(ctx).Warnw("invalid customer id", "value", chi.URLParam(r, "customerID"))
			writeError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}

		txs, err := svc.ListTransactions(ctx, customerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, txs)
	}
}

// RegisterListTransactionsHandler registers the ledger listing route
func RegisterListTransactionsHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/customers/{customerID}/transactions", h)
}
