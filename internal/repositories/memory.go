package repositories

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

// MemoryTransactionRepository keeps ledgers in process memory.
// It is safe for concurrent use. Data is lost on restart.
type MemoryTransactionRepository struct {
	mu         sync.RWMutex
	partitions map[uuid.UUID][]models.Transaction
}

// NewMemoryTransactionRepository creates an empty in-memory store.
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{
		partitions: make(map[uuid.UUID][]models.Transaction),
	}
}

// ListByCustomer returns a copy of the partition, newest first.
func (r *MemoryTransactionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("list transactions", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	partition := r.partitions[customerID]
	txs := make([]models.Transaction, len(partition))
	copy(txs, partition)
	return txs, nil
}

// GetByID returns a copy of the matching row, or nil when there is none.
func (r *MemoryTransactionRepository) GetByID(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError("get transaction", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.partitions[customerID] {
		if tx.TransactionID == transactionID {
			found := tx
			return &found, nil
		}
	}
	return nil, nil
}

// Save inserts tx keeping the partition ordered by descending transaction id.
func (r *MemoryTransactionRepository) Save(ctx context.Context, tx models.Transaction) error {
	if err := ctx.Err(); err != nil {
		return storeError("save transaction", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	partition := r.partitions[tx.CustomerID]
	i := sort.Search(len(partition), func(i int) bool {
		return bytes.Compare(partition[i].TransactionID[:], tx.TransactionID[:]) <= 0
	})
	if i < len(partition) && partition[i].TransactionID == tx.TransactionID {
		return fmt.Errorf("transaction %s already exists for customer %s", tx.TransactionID, tx.CustomerID)
	}

	partition = append(partition, models.Transaction{})
	copy(partition[i+1:], partition[i:])
	partition[i] = tx
	r.partitions[tx.CustomerID] = partition
	return nil
}
