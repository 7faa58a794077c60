package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=get_balance.go -destination=get_balance_mock.go -package=handlers

// BalanceGetter defines the interface that the service must implement.
type BalanceGetter interface {
	GetBalance(ctx context.Context, customerID uuid.UUID) (*models.Balance, error)
}

// NewGetBalanceHandler returns an HTTP handler for a customer's folded balance.
// @Summary Get balance
// @Description Folds the customer's full history. An empty ledger reports 0 USD.
// @Tags ledger
// @Produce json
// @Param customerID path string true "Customer ID (UUID)"
// @Success 200 {object} models.Balance
// @Failure 400 {object} models.ErrorResponse "Invalid customer ID"
// @Failure 503 {object} models.ErrorResponse "Store unavailable"
// @Router /customers/{customerID}/balance [get]
func NewGetBalanceHandler(svc BalanceGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		customerID, err := uuidParam(r, "customerID")
		if err != nil {
			logger.FromContext(ctx).Warnw("invalid customer id", "value", chi.URLParam(r, "customerID"))
			writeError(w, http.StatusBadRequest, "Invalid customer ID")
			return
		}

		balance, err := svc.GetBalance(ctx, customerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, balance)
	}
}

// RegisterGetBalanceHandler registers the balance route
func RegisterGetBalanceHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/customers/{customerID}/balance", h)
}
