package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

// NewRootHandler returns the API welcome message.
// @Summary Welcome
// @Tags meta
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router / [get]
func NewRootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.MessageResponse{
			Message: "Welcome to the Bank Transactions API",
		})
	}
}

// RegisterRootHandler registers the welcome route
func RegisterRootHandler(r chi.Router, h http.HandlerFunc) {
	r.Get("/", h)
}
