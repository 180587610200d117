//go:build integration

// Package testdb starts a disposable MariaDB for integration tests.
package testdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arawak/scribe/internal/config"
	"github.com/arawak/scribe/migrations"
)

// StartMaria runs a MariaDB container for the lifetime of t and returns its DSN.
func StartMaria(t *testing.T, ctx context.Context) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "mariadb:11.4",
		Env:          map[string]string{"MARIADB_ROOT_PASSWORD": "root", "MARIADB_DATABASE": "scribe", "MARIADB_USER": "scribe", "MARIADB_PASSWORD": "scribe"},
		ExposedPorts: []string{"3306/tcp"},
		WaitingFor:   wait.ForListeningPort("3306/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start mariadb: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("scribe:scribe@tcp(%s:%s)/scribe", host, port.Port())
}

// Open starts MariaDB, applies the migrations and connects with the same
// DSN shaping the server uses.
func Open(t *testing.T, ctx context.Context) (*sqlx.DB, *config.Config) {
	t.Helper()
	cfg := &config.Config{DBDSN: StartMaria(t, ctx), LockWaitSeconds: config.DefaultLockWaitSeconds}
	dsn, err := cfg.DriverDSN()
	if err != nil {
		t.Fatalf("driver dsn: %v", err)
	}

	// The port can accept connections shortly before the server is ready.
	var db *sqlx.DB
	deadline := time.Now().Add(30 * time.Second)
	for {
		db, err = sqlx.ConnectContext(ctx, "mysql", dsn)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("db connect: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Up(dsn); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	return db, cfg
}
