package storage

import (
	"os"
	"testing"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func TestPostgresStorageConnectionError(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: ""})
	if err == nil {
		t.Error("expected error for empty connection string")
	}
}

func TestPostgresStorageInvalidDSN(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: "postgres://invalid:5432/nonexistent?connect_timeout=1"})
	if err == nil {
		t.Error("expected error for invalid DSN")
	}
}

func TestPostgresStorage(t *testing.T) {
	dsn := getPostgresDSN(t)
	s, err := NewPostgresStorage(Config{ConnectionString: dsn, Seed: true})
	if err != nil {
		t.Fatalf("failed to create postgres storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	runCatalogSuite(t, s)
}
