package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/models"
	"github.com/sbilibin2017/gw-bank-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-bank-ledger/internal/services"
)

// Exit codes
const (
	exitOK        = 0
	exitFailure   = 1
	exitViolation = 2
)

func main() {
	os.Exit(audit(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// audit verifies the balance snapshots of every customer given with -customer.
func audit(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledger-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("c", "config.env", "Path to configuration file")
	customers := fs.String("customer", "", "Comma separated customer IDs to audit")
	timeout := fs.Duration("timeout", time.Minute, "Overall audit deadline")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(*customers, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			fmt.Fprintf(stderr, "invalid customer id %q: %v\n", raw, err)
			return exitFailure
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		fmt.Fprintln(stderr, "Usage: ledger-audit -customer ID[,ID...] [-c config.env]")
		return exitFailure
	}

	cfg, logLevel, err := parseStoreConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to parse config: %v\n", err)
		return exitFailure
	}
	if err := logger.Initialize(logLevel); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	store, closeStore, err := repositories.OpenStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open store: %v\n", err)
		return exitFailure
	}
	defer closeStore()

	return auditCustomers(ctx, services.NewLedgerQueryService(store, nil), ids, stdout, stderr)
}

// ledgerAuditor verifies one customer ledger.
type ledgerAuditor interface {
	AuditLedger(ctx context.Context, customerID uuid.UUID) error
}

func auditCustomers(ctx context.Context, auditor ledgerAuditor, ids []uuid.UUID, stdout, stderr io.Writer) int {
	code := exitOK
	for _, id := range ids {
		err := auditor.AuditLedger(ctx, id)
		switch {
		case err == nil:
			fmt.Fprintf(stdout, "%s\tOK\n", id)
		case errors.Is(err, models.ErrInvariantViolation):
			fmt.Fprintf(stdout, "%s\tVIOLATION\t%v\n", id, err)
			code = exitViolation
		default:
			fmt.Fprintf(stderr, "%s\tERROR\t%v\n", id, err)
			return exitFailure
		}
	}
	return code
}

// parseStoreConfig reads the store section of the service configuration.
func parseStoreConfig(path string) (repositories.StoreConfig, string, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	var cfg repositories.StoreConfig
	cfg.Driver = strings.ToLower(getEnv("STORE_DRIVER", repositories.DriverPostgres))

	timeoutMs, err := strconv.Atoi(getEnv("STORE_TIMEOUT_MS", "2000"))
	if err != nil {
		return cfg, "", fmt.Errorf("STORE_TIMEOUT_MS: %w", err)
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond

	port, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return cfg, "", fmt.Errorf("POSTGRES_PORT: %w", err)
	}
	cfg.Postgres = repositories.PostgresConfig{
		Host:         getEnv("POSTGRES_HOST", "localhost"),
		Port:         port,
		User:         getEnv("POSTGRES_USER", "user"),
		Password:     getEnv("POSTGRES_PASSWORD", "password"),
		DB:           getEnv("POSTGRES_DB", "database"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}

	var hosts []string
	for _, h := range strings.Split(getEnv("CASSANDRA_HOSTS", "localhost"), ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	cfg.Cassandra = repositories.CassandraConfig{
		Hosts:       hosts,
		Keyspace:    getEnv("CASSANDRA_KEYSPACE", "bank"),
		Username:    getEnv("CASSANDRA_USERNAME", ""),
		Password:    getEnv("CASSANDRA_PASSWORD", ""),
		Consistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),
		Timeout:     cfg.Timeout,
	}

	return cfg, getEnv("APP_LOG_LEVEL", "warn"), nil
}
