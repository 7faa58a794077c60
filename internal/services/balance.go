package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

// BalanceCalculator derives a balance and its reported currency from ledger rows.
type BalanceCalculator interface {
	Calculate(txs []models.Transaction) (decimal.Decimal, string)
}

// FullScanCalculator folds every row it is given. Its cost is linear in the ledger size.
type FullScanCalculator struct{}

// Calculate implements BalanceCalculator.
func (FullScanCalculator) Calculate(txs []models.Transaction) (decimal.Decimal, string) {
	return FoldBalance(txs)
}

// FoldBalance reduces txs, in iteration order, to a signed sum.
//
// A non-empty currency on a row replaces the running currency, so the result
// reports whichever currency was seen last. An empty type folds as CREDIT;
// a type that is neither CREDIT nor DEBIT after upper-casing is ignored.
func FoldBalance(txs []models.Transaction) (decimal.Decimal, string) {
	balance := decimal.Zero
	currency := models.DefaultCurrency

	for _, tx := range txs {
		if tx.Currency != "" {
			currency = tx.Currency
		}
		balance = foldRow(balance, tx.TransactionType, tx.Amount)
	}

	return balance, currency
}

// foldRow applies one stored row to balance. An empty type folds as CREDIT
// and an unknown type leaves balance unchanged.
func foldRow(balance decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch models.NormalizeTransactionType(string(txType)) {
	case models.Credit, "":
		return balance.Add(amount)
	case models.Debit:
		return balance.Sub(amount)
	default:
		return balance
	}
}

// applySnapshot returns the balance after a write of the given type.
// Anything that is not CREDIT decreases the balance.
func applySnapshot(current decimal.Decimal, txType models.TransactionType, amount decimal.Decimal) decimal.Decimal {
	if txType == models.Credit {
		return current.Add(amount)
	}
	return current.Sub(amount)
}

// VerifySnapshots checks that each stored balance_snapshot equals the previous
// row's snapshot adjusted by the row amount, using the same per-row rule as
// FoldBalance. txs must be in store order (descending by transaction id); the
// oldest row is preceded by zero.
func VerifySnapshots(txs []models.Transaction) error {
	previous := decimal.Zero
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		expected := foldRow(previous, tx.TransactionType, tx.Amount)
		if !tx.BalanceSnapshot.Equal(expected) {
			return fmt.Errorf("%w: transaction %s has snapshot %s, expected %s",
				models.ErrInvariantViolation, tx.TransactionID, tx.BalanceSnapshot, expected)
		}
		previous = tx.BalanceSnapshot
	}
	return nil
}
