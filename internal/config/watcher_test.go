package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/technosupport/fleetwatch/internal/config"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  tick_interval: 3s\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan config.Config, 4)
	config.StartWatcher(ctx, path, func(cfg config.Config) {
		reloaded <- cfg
	})

	// Give the watcher a beat to register before rewriting.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  tick_interval: 7s\n"), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, 7*time.Second, cfg.Sim.TickInterval)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatcherIgnoresMalformedRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: ':8080'\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan config.Config, 4)
	config.StartWatcher(ctx, path, func(cfg config.Config) {
		reloaded <- cfg
	})

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("malformed config delivered: %+v", cfg)
	case <-time.After(time.Second):
		// Watcher kept the previous config.
	}
}
