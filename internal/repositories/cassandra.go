package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/inf.v0"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

// CassandraConfig holds the parameters of a Cassandra session.
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// NewCassandraSession connects to the cluster described by cfg.
func NewCassandraSession(cfg CassandraConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.Consistency != "" {
		consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, err
		}
		cluster.Consistency = consistency
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, storeError("connect cassandra", err)
	}
	return session, nil
}

const cassandraSchema = `
	CREATE TABLE IF NOT EXISTS bank_transactions (
		customer_id UUID,
		transaction_id UUID,
		amount decimal,
		currency text,
		transaction_type text,
		merchant_name text,
		description text,
		status text,
		balance_snapshot decimal,
		transaction_timestamp timestamp,
		PRIMARY KEY ((customer_id), transaction_id)
	) WITH CLUSTERING ORDER BY (transaction_id DESC)
`

// CreateCassandraSchema creates the bank_transactions table in the session keyspace.
func CreateCassandraSchema(ctx context.Context, session *gocql.Session) error {
	err := session.Query(cassandraSchema).WithContext(ctx).Exec()
	logger.Log.Infow("cassandra schema ensured", "error", err)
	if err != nil {
		return storeError("create cassandra schema", err)
	}
	return nil
}

// CassandraTransactionRepository stores ledgers in a partitioned Cassandra table.
type CassandraTransactionRepository struct {
	session *gocql.Session
	timeout time.Duration
}

// NewCassandraTransactionRepository creates a repository bounding each call by timeout.
func NewCassandraTransactionRepository(session *gocql.Session, timeout time.Duration) *CassandraTransactionRepository {
	return &CassandraTransactionRepository{session: session, timeout: timeout}
}

// ListByCustomer returns the customer's partition in clustering order.
func (r *CassandraTransactionRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error) {
	const query = `
		SELECT customer_id, transaction_id, amount, currency, transaction_type,
		       merchant_name, description, status, balance_snapshot, transaction_timestamp
		FROM bank_transactions
		WHERE customer_id = ?
	`

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	iter := r.session.Query(query, gocql.UUID(customerID)).WithContext(ctx).Iter()

	txs := []models.Transaction{}
	for {
		var row cassandraRow
		if !iter.Scan(row.dest()...) {
			break
		}
		txs = append(txs, row.toModel())
	}
	err := iter.Close()

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", []any{customerID},
		"rows", len(txs),
		"error", err,
	)

	if err != nil {
		return nil, storeError("list transactions", err)
	}
	return txs, nil
}

// GetByID returns the matching row, or nil when there is none.
func (r *CassandraTransactionRepository) GetByID(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error) {
	const query = `
		SELECT customer_id, transaction_id, amount, currency, transaction_type,
		       merchant_name, description, status, balance_snapshot, transaction_timestamp
		FROM bank_transactions
		WHERE customer_id = ? AND transaction_id = ?
	`

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	var row cassandraRow
	err := r.session.Query(query, gocql.UUID(customerID), gocql.UUID(transactionID)).
		WithContext(ctx).
		Scan(row.dest()...)

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", []any{customerID, transactionID},
		"error", err,
	)

	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get transaction", err)
	}

	tx := row.toModel()
	return &tx, nil
}

// Save appends tx to the customer's partition.
func (r *CassandraTransactionRepository) Save(ctx context.Context, tx models.Transaction) error {
	const query = `
		INSERT INTO bank_transactions (
			customer_id, transaction_id, amount, currency, transaction_type,
			merchant_name, description, status, balance_snapshot, transaction_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ctx, cancel := callContext(ctx, r.timeout)
	defer cancel()

	err := r.session.Query(query,
		gocql.UUID(tx.CustomerID),
		gocql.UUID(tx.TransactionID),
		decimalToInf(tx.Amount),
		tx.Currency,
		string(tx.TransactionType),
		tx.MerchantName,
		tx.Description,
		tx.Status,
		decimalToInf(tx.BalanceSnapshot),
		tx.TransactionTimestamp,
	).WithContext(ctx).Exec()

	logger.FromContext(ctx).Debugw("query",
		"query", oneLine(query),
		"args", []any{tx.CustomerID, tx.TransactionID, tx.Amount, tx.TransactionType, tx.BalanceSnapshot},
		"error", err,
	)

	if err != nil {
		return storeError("save transaction", err)
	}
	return nil
}

type cassandraRow struct {
	customerID      gocql.UUID
	transactionID   gocql.UUID
	amount          inf.Dec
	currency        string
	transactionType string
	merchantName    string
	description     string
	status          string
	balanceSnapshot inf.Dec
	timestamp       time.Time
}

func (r *cassandraRow) dest() []any {
	return []any{
		&r.customerID, &r.transactionID, &r.amount, &r.currency, &r.transactionType,
		&r.merchantName, &r.description, &r.status, &r.balanceSnapshot, &r.timestamp,
	}
}

func (r *cassandraRow) toModel() models.Transaction {
	tx := models.Transaction{
		CustomerID:      uuid.UUID(r.customerID),
		TransactionID:   uuid.UUID(r.transactionID),
		Amount:          infToDecimal(&r.amount),
		Currency:        r.currency,
		TransactionType: models.TransactionType(r.transactionType),
		MerchantName:    r.merchantName,
		Description:     r.description,
		Status:          r.status,
		BalanceSnapshot: infToDecimal(&r.balanceSnapshot),
	}
	if !r.timestamp.IsZero() {
		tx.TransactionTimestamp = r.timestamp.UTC()
	}
	return tx
}

func decimalToInf(d decimal.Decimal) *inf.Dec {
	return inf.NewDecBig(d.Coefficient(), inf.Scale(-d.Exponent()))
}

func infToDecimal(d *inf.Dec) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledBig(), -int32(d.Scale()))
}
