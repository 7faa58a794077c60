package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-bank-ledger/internal/repositories"
	"github.com/sbilibin2017/gw-bank-ledger/internal/services"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	resetFlags()
	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())

	resetFlags()
	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2025-09-26"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	output := buf.String()
	assert.Contains(t, output, "version v1.0.0")
	assert.Contains(t, output, "commit abcd1234")
	assert.Contains(t, output, "build 2025-09-26")
}

func TestParseConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.AppHost)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, repositories.DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 5432, cfg.PGPort)
	assert.Equal(t, 16, cfg.PGMaxOpenConns)
	assert.Equal(t, []string{"localhost"}, cfg.CassandraHosts)
	assert.Equal(t, "QUORUM", cfg.CassandraConsistency)
	assert.True(t, cfg.StrictTypes)
	assert.False(t, cfg.SerializeWrites)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, 6379, cfg.RedisPort)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "bank-transactions", cfg.KafkaTopic)
}

func TestParseConfig_CustomEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_REQUEST_TIMEOUT_MS", "250")
	t.Setenv("STORE_DRIVER", "Cassandra")
	t.Setenv("CASSANDRA_HOSTS", "c1:9042, c2:9042,")
	t.Setenv("CASSANDRA_KEYSPACE", "ledger")
	t.Setenv("LEDGER_STRICT_TYPES", "false")
	t.Setenv("LEDGER_SERIALIZE_WRITES", "true")
	t.Setenv("LEDGER_LOCK_TTL_MS", "1500")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_TOPIC", "ledger-events")

	cfg, err := parseConfig("nonexistent.env")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.AppHost)
	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, repositories.DriverCassandra, cfg.StoreDriver)
	assert.Equal(t, []string{"c1:9042", "c2:9042"}, cfg.CassandraHosts)
	assert.Equal(t, "ledger", cfg.CassandraKeyspace)
	assert.False(t, cfg.StrictTypes)
	assert.True(t, cfg.SerializeWrites)
	assert.Equal(t, 1500*time.Millisecond, cfg.LockTTL)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ledger-events", cfg.KafkaTopic)
}

func TestParseConfig_DotenvFile(t *testing.T) {
	os.Clearenv()
	path := t.TempDir() + "/config.env"
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=7070\nSTORE_DRIVER=memory\n"), 0o600))

	cfg, err := parseConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.AppPort)
	assert.Equal(t, repositories.DriverMemory, cfg.StoreDriver)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad port", "POSTGRES_PORT", "five"},
		{"bad bool", "LEDGER_STRICT_TYPES", "maybe"},
		{"bad timeout", "STORE_TIMEOUT_MS", "1s"},
		{"unknown driver", "STORE_DRIVER", "mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			t.Setenv(tt.key, tt.value)

			cfg, err := parseConfig("nonexistent.env")
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestNewRouter(t *testing.T) {
	cfg := &config{AppHost: "localhost", AppPort: "8080", RequestTimeout: time.Second}
	store := repositories.NewMemoryTransactionRepository()
	query := services.NewLedgerQueryService(store, nil)
	writer := services.NewTransactionWriterService(store, query)

	srv := httptest.NewServer(newRouter(cfg, query, writer))
	defer srv.Close()

	customer := srv.URL + "/customers/" + uuid.NewString()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = http.Post(customer+"/transactions", "application/json",
		strings.NewReader(`{"amount":"100.00","currency":"USD","transaction_type":"CREDIT"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(customer + "/balance")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"balance":"100"`)

	resp, err = http.Get(customer + "/transactions/" + uuid.NewString())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewKafkaWriter(t *testing.T) {
	cfg := &config{KafkaBrokers: []string{"k1:9092"}, KafkaTopic: "ledger-events", RequestTimeout: 2 * time.Second}

	w := newKafkaWriter(cfg)
	defer w.Close()

	assert.Equal(t, "ledger-events", w.Topic)
	assert.Equal(t, "k1:9092", w.Addr.String())
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.False(t, w.Async)
	assert.Equal(t, 1, w.BatchSize)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.BatchTimeout)
	assert.Equal(t, cfg.RequestTimeout, w.WriteTimeout)
}

func freePort(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	_, port, err := net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)
	return port
}

func TestRun_MemoryStore(t *testing.T) {
	cfg := &config{
		AppHost:        "127.0.0.1",
		AppPort:        freePort(t),
		LogLevel:       "debug",
		RequestTimeout: time.Second,
		StoreDriver:    repositories.DriverMemory,
		StrictTypes:    true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg) }()

	url := "http://" + cfg.AppHost + ":" + cfg.AppPort + "/"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(11 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	err := run(context.Background(), &config{LogLevel: "loud", StoreDriver: repositories.DriverMemory})
	assert.Error(t, err)
}
