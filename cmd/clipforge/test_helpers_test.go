package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/api"
	"clipforge/internal/autoclip"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
	"clipforge/internal/workflow"
)

// failingHandler claims items and fails them so nothing touches ffmpeg.
type failingHandler struct{}

func (failingHandler) Name() string { return "test" }

func (failingHandler) Process(context.Context, *queue.Item) (*queue.Clip, error) {
	return nil, errors.New("conversion disabled in tests")
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	daemon     *daemon.Daemon
	configPath string
	apiURL     string
}

// setupCLITestEnv writes a config file and opens the queue without starting
// a daemon. apiURL points at a port nothing listens on.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(home, ".config", "clipforge", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
		apiURL:     "http://127.0.0.1:1",
	}
}

// startDaemon runs a daemon against the env's queue and points apiURL at it.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()

	hub := notifications.NewHub()
	manager := autoclip.New(env.store, hub, autoclip.WithDefaults(queue.TriggerConfig{
		Workflow:         "default",
		AudioEnabled:     true,
		VisualEnabled:    true,
		AutoClipEnabled:  true,
		AutoClipDuration: 3600,
	}))
	wf := workflow.NewManager(env.cfg, env.store, failingHandler{}, hub, nil)
	d, err := daemon.New(env.cfg, env.store, nil, daemon.Components{AutoClip: manager, Workflow: wf, Hub: hub})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	env.daemon = d
	env.apiURL = api.BaseURL(d.APIAddress())
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runCLI(t, args, env.apiURL, env.configPath)
	return stdout, err
}

func runCLI(t *testing.T, args []string, apiURL, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--api", apiURL}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedPending creates a session with one ended clip waiting for conversion.
func seedPending(t *testing.T, store *queue.Store, sessionID string, t0, t1 float64) *queue.Item {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateSession(ctx, queue.Session{ID: sessionID, Workflow: "default", SourcePath: "/tmp/" + sessionID + ".mp4"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	item, err := store.CreateRecording(ctx, queue.NewItem{
		SessionID:     sessionID,
		TriggerType:   queue.TriggerManual,
		TriggerSource: "manual",
		T0:            t0,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	ended, err := store.EndRecording(ctx, item.ID, t1)
	if err != nil {
		t.Fatalf("EndRecording: %v", err)
	}
	return ended
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
