package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sbilibin2017/gw-bank-ledger/internal/handlers"
	"github.com/sbilibin2017/gw-bank-ledger/internal/logger"
	"github.com/sbilibin2017/gw-bank-ledger/internal/middlewares"
	"github.com/sbilibin2017/gw-bank-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-bank-ledger/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// config is the full service configuration.
type config struct {
	AppHost        string
	AppPort        string
	LogLevel       string
	RequestTimeout time.Duration

	StoreDriver  string
	StoreTimeout time.Duration

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	CassandraHosts       []string
	CassandraKeyspace    string
	CassandraUsername    string
	CassandraPassword    string
	CassandraConsistency string

	StrictTypes     bool
	SerializeWrites bool
	LockTTL         time.Duration

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	KafkaBrokers []string
	KafkaTopic   string
}

// @title gw-bank-ledger API
// @version 1.0.0
// @description Append-only per-customer transaction ledger with balance snapshots
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// parseConfig loads environment variables from a file and returns the
// application, store, lock and event configuration.
func parseConfig(path string) (*config, error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}

	var err error
	getInt := func(key, defaultValue string) int {
		if err != nil {
			return 0
		}
		var v int
		if v, err = strconv.Atoi(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return v
	}
	getBool := func(key, defaultValue string) bool {
		if err != nil {
			return false
		}
		var v bool
		if v, err = strconv.ParseBool(getEnv(key, defaultValue)); err != nil {
			err = fmt.Errorf("%s: %w", key, err)
		}
		return v
	}
	getMillis := func(key, defaultValue string) time.Duration {
		return time.Duration(getInt(key, defaultValue)) * time.Millisecond
	}

	cfg := &config{
		// Application config
		AppHost:        getEnv("APP_HOST", "localhost"),
		AppPort:        getEnv("APP_PORT", "8080"),
		LogLevel:       getEnv("APP_LOG_LEVEL", "info"),
		RequestTimeout: getMillis("APP_REQUEST_TIMEOUT_MS", "5000"),

		// Store config
		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", repositories.DriverPostgres)),
		StoreTimeout: getMillis("STORE_TIMEOUT_MS", "2000"),

		// PostgreSQL config
		PGHost:         getEnv("POSTGRES_HOST", "localhost"),
		PGPort:         getInt("POSTGRES_PORT", "5432"),
		PGUser:         getEnv("POSTGRES_USER", "user"),
		PGPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PGDB:           getEnv("POSTGRES_DB", "database"),
		PGMaxOpenConns: getInt("POSTGRES_MAX_OPEN_CONNS", "16"),
		PGMaxIdleConns: getInt("POSTGRES_MAX_IDLE_CONNS", "8"),

		// Cassandra config
		CassandraHosts:       splitList(getEnv("CASSANDRA_HOSTS", "localhost")),
		CassandraKeyspace:    getEnv("CASSANDRA_KEYSPACE", "bank"),
		CassandraUsername:    getEnv("CASSANDRA_USERNAME", ""),
		CassandraPassword:    getEnv("CASSANDRA_PASSWORD", ""),
		CassandraConsistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),

		// Ledger policy
		StrictTypes:     getBool("LEDGER_STRICT_TYPES", "true"),
		SerializeWrites: getBool("LEDGER_SERIALIZE_WRITES", "false"),
		LockTTL:         getMillis("LEDGER_LOCK_TTL_MS", "5000"),

		// Redis config
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getInt("REDIS_PORT", "6379"),
		RedisDB:           getInt("REDIS_DB", "0"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisPoolSize:     getInt("REDIS_POOL_SIZE", "10"),
		RedisMinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", "2"),

		// Kafka config
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "bank-transactions"),
	}
	if err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case repositories.DriverPostgres, repositories.DriverCassandra, repositories.DriverMemory:
	default:
		return nil, fmt.Errorf("STORE_DRIVER: unsupported driver %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// storeConfig returns the store section of c.
func (c *config) storeConfig() repositories.StoreConfig {
	return repositories.StoreConfig{
		Driver:  c.StoreDriver,
		Timeout: c.StoreTimeout,
		Postgres: repositories.PostgresConfig{
			Host:         c.PGHost,
			Port:         c.PGPort,
			User:         c.PGUser,
			Password:     c.PGPassword,
			DB:           c.PGDB,
			MaxOpenConns: c.PGMaxOpenConns,
			MaxIdleConns: c.PGMaxIdleConns,
		},
		Cassandra: repositories.CassandraConfig{
			Hosts:       c.CassandraHosts,
			Keyspace:    c.CassandraKeyspace,
			Username:    c.CassandraUsername,
			Password:    c.CassandraPassword,
			Consistency: c.CassandraConsistency,
			Timeout:     c.StoreTimeout,
		},
	}
}

// kafkaBatchTimeout bounds how long a single event waits for a batch to fill.
// Writes are synchronous and one message per call, so the library default of
// one second would be added to every POST.
const kafkaBatchTimeout = 5 * time.Millisecond

// newKafkaWriter returns the transaction event writer, keyed by customer id.
func newKafkaWriter(cfg *config) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchSize:              1,
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           cfg.RequestTimeout,
		AllowAutoTopicCreation: true,
	}
}

// newRouter builds the HTTP surface over the ledger services.
func newRouter(cfg *config, query *services.LedgerQueryService, writer *services.TransactionWriterService) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	handlers.RegisterRootHandler(r, handlers.NewRootHandler())
	handlers.RegisterListTransactionsHandler(r, handlers.NewListTransactionsHandler(query))
	handlers.RegisterGetTransactionHandler(r, handlers.NewGetTransactionHandler(query))
	handlers.RegisterGetBalanceHandler(r, handlers.NewGetBalanceHandler(query))
	handlers.RegisterCreateTransactionHandler(r, handlers.NewCreateTransactionHandler(writer))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s:%s/swagger/doc.json", cfg.AppHost, cfg.AppPort)),
	))

	return r
}

// run initializes the logger, store, optional Redis lock and Kafka writer,
// and the HTTP server. It blocks until ctx is done or a signal arrives.
func run(ctx context.Context, cfg *config) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	store, closeStore, err := repositories.OpenStore(ctx, cfg.storeConfig())
	if err != nil {
		logger.Log.Errorw("failed to open store", "driver", cfg.StoreDriver, "error", err)
		return err
	}
	defer closeStore()

	query := services.NewLedgerQueryService(store, nil)

	opts := []services.WriterOption{services.WithStrictTypes(cfg.StrictTypes)}

	if cfg.SerializeWrites {
		rdb := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return fmt.Errorf("redis connection: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, services.WithCustomerLocker(repositories.NewCustomerLockRepository(rdb, cfg.LockTTL)))
		logger.Log.Infow("per-customer write lock enabled", "ttl", cfg.LockTTL)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kw := newKafkaWriter(cfg)
		defer kw.Close()
		opts = append(opts, services.WithKafkaWriter(kw))
		logger.Log.Infow("transaction events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	writer := services.NewTransactionWriterService(store, query, opts...)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort),
		Handler:           newRouter(cfg, query, writer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}
