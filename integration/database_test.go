//go:build database

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestSpectrumWithMySQL tests the spectrum CLI with a MySQL backend.
func TestSpectrumWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "spectrum",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/spectrum?parseTime=true", host, port.Port())

	// Set environment variables
	_ = os.Setenv("SPECTRUM_CACHE_BACKEND", "mysql")
	_ = os.Setenv("SPECTRUM_CACHE_DB_CONNECT", connStr)
	_ = os.Setenv("SPECTRUM_RUN_BACKEND", "mysql")
	_ = os.Setenv("SPECTRUM_RUN_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("SPECTRUM_CACHE_BACKEND") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_CACHE_DB_CONNECT") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_RUN_BACKEND") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_RUN_DB_CONNECT") }()

	runBackendSmoke(t)
}

// TestSpectrumWithPostgres tests the spectrum CLI with a PostgreSQL backend.
func TestSpectrumWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	// Set environment variables
	_ = os.Setenv("SPECTRUM_CACHE_BACKEND", "postgresql")
	_ = os.Setenv("SPECTRUM_CACHE_DB_CONNECT", connStr)
	_ = os.Setenv("SPECTRUM_RUN_BACKEND", "postgresql")
	_ = os.Setenv("SPECTRUM_RUN_DB_CONNECT", connStr)
	defer func() { _ = os.Unsetenv("SPECTRUM_CACHE_BACKEND") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_CACHE_DB_CONNECT") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_RUN_BACKEND") }()
	defer func() { _ = os.Unsetenv("SPECTRUM_RUN_DB_CONNECT") }()

	runBackendSmoke(t)
}

// runBackendSmoke exercises cache and run tracking through the CLI against
// whatever backend the environment selects.
func runBackendSmoke(t *testing.T) {
	t.Helper()

	// Run spectrum cache clear
	err := runSpectrumCommand(t, "cache", "clear")
	require.NoError(t, err)

	// Run spectrum runs clear
	err = runSpectrumCommand(t, "runs", "clear")
	require.NoError(t, err)

	// Run spectrum scan on a fixture model; this populates both stores
	modelDir := writeFixtureModel(t)
	err = runSpectrumCommand(t, "scan", modelDir,
		"--out-dir", t.TempDir(),
		"--output", "json",
		"--output-file", filepath.Join(t.TempDir(), "scan.json"))
	require.NoError(t, err)

	// A second scan should be served from the report cache
	err = runSpectrumCommand(t, "scan", modelDir,
		"--out-dir", t.TempDir(),
		"--output", "json",
		"--output-file", filepath.Join(t.TempDir(), "scan.json"))
	require.NoError(t, err)

	// Run spectrum cache status
	err = runSpectrumCommand(t, "cache", "status")
	require.NoError(t, err)

	// Run spectrum runs status
	err = runSpectrumCommand(t, "runs", "status")
	require.NoError(t, err)
}
