package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

//go:generate mockgen -source=transaction_writer.go -destination=transaction_writer_mock.go -package=services

// TransactionWriter defines the append-only write to a customer ledger.
type TransactionWriter interface {
	Save(ctx context.Context, tx models.Transaction) error // Appends one row
}

// BalanceGetter returns the current balance of a customer ledger.
type BalanceGetter interface {
	GetBalance(ctx context.Context, customerID uuid.UUID) (*models.Balance, error)
}

// CustomerLocker serializes writers of one customer ledger across processes.
type CustomerLocker interface {
	Lock(ctx context.Context, customerID uuid.UUID) (string, error)       // Returns a token owning the lock
	Unlock(ctx context.Context, customerID uuid.UUID, token string) error // Releases the lock if token still owns it
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// TransactionCreatedEvent is published after a transaction has been stored.
type TransactionCreatedEvent struct {
	Event       string             `json:"event"`
	Transaction models.Transaction `json:"transaction"`
}

// TransactionWriterService appends transactions with a balance snapshot.
type TransactionWriterService struct {
	writer      TransactionWriter
	balances    BalanceGetter
	locker      CustomerLocker
	kafkaWriter KafkaWriter
	strictTypes bool
	newID       func() (uuid.UUID, error)
	now         func() time.Time
}

// WriterOption configures a TransactionWriterService.
type WriterOption func(*TransactionWriterService)

// WithCustomerLocker serializes CreateTransaction per customer through locker.
func WithCustomerLocker(locker CustomerLocker) WriterOption {
	return func(s *TransactionWriterService) { s.locker = locker }
}

// WithKafkaWriter publishes a TransactionCreatedEvent for every stored row.
func WithKafkaWriter(w KafkaWriter) WriterOption {
	return func(s *TransactionWriterService) { s.kafkaWriter = w }
}

// WithStrictTypes controls write-side type handling. When strict is false any
// type other than CREDIT is written as DEBIT.
func WithStrictTypes(strict bool) WriterOption {
	return func(s *TransactionWriterService) { s.strictTypes = strict }
}

// WithIDGenerator overrides the transaction id source.
func WithIDGenerator(newID func() (uuid.UUID, error)) WriterOption {
	return func(s *TransactionWriterService) { s.newID = newID }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) WriterOption {
	return func(s *TransactionWriterService) { s.now = now }
}

// NewTransactionWriterService creates a new TransactionWriterService.
func NewTransactionWriterService(writer TransactionWriter, balances BalanceGetter, opts ...WriterOption) *TransactionWriterService {
	s := &TransactionWriterService{
		writer:      writer,
		balances:    balances,
		strictTypes: true,
		newID:       uuid.NewV7,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction validates req, snapshots the balance that results from
// applying it to the customer's current balance, and appends the row.
//
// Reading the balance and appending are separate store calls. Without a
// CustomerLocker two concurrent calls for the same customer may read the same
// balance, and their snapshots will then not form a running sum.
func (s *TransactionWriterService) CreateTransaction(ctx context.Context, customerID uuid.UUID, req models.CreateTransactionRequest) (*models.Transaction, error) {
	log := logger.FromContext(ctx)

	txType, err := s.validate(req)
	if err != nil {
		log.Warnw("rejected transaction", "customerID", customerID, "error", err)
		return nil, err
	}

	if s.locker != nil {
		token, err := s.locker.Lock(ctx, customerID)
		if err != nil {
			log.Errorw("failed to lock customer ledger", "customerID", customerID, "error", err)
			return nil, err
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx), customerID, token); err != nil {
				log.Errorw("failed to unlock customer ledger", "customerID", customerID, "error", err)
			}
		}()
	}

	current, err := s.balances.GetBalance(ctx, customerID)
	if err != nil {
		log.Errorw("failed to get balance before write", "customerID", customerID, "error", err)
		return nil, err
	}

	transactionID, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}

	tx := models.Transaction{
		CustomerID:           customerID,
		TransactionID:        transactionID,
		Amount:               req.Amount,
		Currency:             strings.TrimSpace(req.Currency),
		TransactionType:      txType,
		MerchantName:         req.MerchantName,
		Description:          req.Description,
		Status:               req.Status,
		BalanceSnapshot:      applySnapshot(current.Balance, txType, req.Amount),
		TransactionTimestamp: s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.writer.Save(ctx, tx); err != nil {
		log.Errorw("failed to save transaction", "customerID", customerID, "transactionID", transactionID, "error", err)
		return nil, err
	}

	log.Infow("transaction created",
		"customerID", customerID,
		"transactionID", transactionID,
		"type", txType,
		"amount", tx.Amount,
		"balanceSnapshot", tx.BalanceSnapshot,
	)

	s.publishTransaction(ctx, tx)

	return &tx, nil
}

func (s *TransactionWriterService) validate(req models.CreateTransactionRequest) (models.TransactionType, error) {
	if !req.Amount.IsPositive() {
		return "", fmt.Errorf("%w: amount must be positive, got %s", models.ErrValidation, req.Amount)
	}
	if strings.TrimSpace(req.Currency) == "" {
		return "", fmt.Errorf("%w: currency is required", models.ErrValidation)
	}

	txType := models.NormalizeTransactionType(req.TransactionType)
	if s.strictTypes {
		if !txType.Valid() {
			return "", fmt.Errorf("%w: transaction_type must be CREDIT or DEBIT, got %q", models.ErrValidation, req.TransactionType)
		}
		return txType, nil
	}

	if txType != models.Credit {
		txType = models.Debit
	}
	return txType, nil
}

// publishTransaction publishes a stored transaction to Kafka. Failures are logged only.
func (s *TransactionWriterService) publishTransaction(ctx context.Context, tx models.Transaction) {
	if s.kafkaWriter == nil {
		return
	}

	data, err := json.Marshal(TransactionCreatedEvent{Event: "transaction.created", Transaction: tx})
	if err != nil {
		logger.FromContext(ctx).Errorw("failed to marshal transaction for Kafka", "transactionID", tx.TransactionID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(tx.CustomerID.String()),
		Value: data,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.FromContext(ctx).Errorw("failed to publish transaction to Kafka", "transactionID", tx.TransactionID, "error", err)
	} else {
		logger.FromContext(ctx).Debugw("transaction published to Kafka", "transactionID", tx.TransactionID)
	}
}
