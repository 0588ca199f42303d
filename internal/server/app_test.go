package server

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/miretia/internal/server/config"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/dmitrijs2005/miretia/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrAdmin = "127.0.0.1:0"
	c.HashMemoryKiB = 1024
	c.HashParallelism = 1
	c.ShutdownTimeout = time.Second
	return c
}

func TestNewApp_RegistersThroughWiredService(t *testing.T) {
	var logs bytes.Buffer
	app, err := NewApp(context.Background(), testConfig(t), &logs)
	require.NoError(t, err)
	defer app.repos.Close()

	res, err := app.accounts.Register(context.Background(), models.RegistrationInput{
		Username: "abc", Email: "a@b.com", Password: "secret",
	})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.NotContains(t, logs.String(), "secret")
}

func TestNewApp_SQLiteRegistersDBStats(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "sqlite://" + filepath.Join(t.TempDir(), "accounts.db")

	app, err := NewApp(context.Background(), c, &bytes.Buffer{})
	require.NoError(t, err)
	defer app.repos.Close()

	families, err := app.metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		found = found || f.GetName() == "go_sql_open_connections"
	}
	assert.True(t, found)
}

func TestNewApp_StoreError(t *testing.T) {
	orig := newRepositoryManager
	newRepositoryManager = func(context.Context, string) (repomanager.RepositoryManager, error) {
		return nil, errors.New("unreachable")
	}
	t.Cleanup(func() { newRepositoryManager = orig })

	_, err := NewApp(context.Background(), testConfig(t), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db init error")
}

func TestNewApp_UnsupportedDSN(t *testing.T) {
	c := testConfig(t)
	c.DatabaseDSN = "mongodb://localhost"

	_, err := NewApp(context.Background(), c, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var logs bytes.Buffer
	app, err := NewApp(context.Background(), testConfig(t), &logs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	// store is closed after Run
	require.Error(t, app.repos.Ping(context.Background()))
}

func TestRun_ServerFailureStopsApp(t *testing.T) {
	c := testConfig(t)
	c.EndpointAddrAdmin = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c, &bytes.Buffer{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin server")
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after server failure")
	}
}

func TestDSNScheme(t *testing.T) {
	assert.Equal(t, "postgres", dsnScheme("postgres://user:pw@host/db"))
	assert.Equal(t, "memory", dsnScheme("memory://"))
}
