package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
)

// Supported store drivers
const (
	DriverPostgres  = "postgres"
	DriverCassandra = "cassandra"
	DriverMemory    = "memory"
)

// PostgresConfig holds the parameters of a PostgreSQL pool.
type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DB           string
	MaxOpenConns int
	MaxIdleConns int
}

// DSN returns the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.DB)
}

// StoreConfig selects and configures a ledger store.
type StoreConfig struct {
	Driver    string
	Timeout   time.Duration
	Postgres  PostgresConfig
	Cassandra CassandraConfig
}

// LedgerStore is implemented by every store adapter.
type LedgerStore interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Transaction, error)
	GetByID(ctx context.Context, customerID, transactionID uuid.UUID) (*models.Transaction, error)
	Save(ctx context.Context, tx models.Transaction) error
}

// OpenStore connects the configured driver and prepares its schema.
// The returned function releases the underlying session.
func OpenStore(ctx context.Context, cfg StoreConfig) (LedgerStore, func(), error) {
	switch cfg.Driver {
	case DriverPostgres:
		logger.Log.Infow("connecting to PostgreSQL", "host", cfg.Postgres.Host, "port", cfg.Postgres.Port, "db", cfg.Postgres.DB)

		db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, storeError("connect postgres", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)

		if err := MigratePostgres(db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewPostgresTransactionRepository(db, cfg.Timeout), func() { db.Close() }, nil

	case DriverCassandra:
		logger.Log.Infow("connecting to Cassandra", "hosts", cfg.Cassandra.Hosts, "keyspace", cfg.Cassandra.Keyspace)

		if cfg.Cassandra.Timeout == 0 {
			cfg.Cassandra.Timeout = cfg.Timeout
		}
		session, err := NewCassandraSession(cfg.Cassandra)
		if err != nil {
			return nil, nil, err
		}
		if err := CreateCassandraSchema(ctx, session); err != nil {
			session.Close()
			return nil, nil, err
		}
		return NewCassandraTransactionRepository(session, cfg.Timeout), session.Close, nil

	case DriverMemory:
		logger.Log.Warn("using in-memory store, data is lost on exit")
		return NewMemoryTransactionRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
