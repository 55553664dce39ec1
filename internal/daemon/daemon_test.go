package daemon_test

import (
	"context"
	"testing"

	"pagemill/internal/daemon"
	"pagemill/internal/ocr"
	"pagemill/internal/pipeline"
	"pagemill/internal/render"
	"pagemill/internal/testsupport"
)

func newDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	manager := pipeline.NewManager(cfg, st, &ocr.Stub{Text: "ok"}, render.NewFileGenerator(cfg), nil)

	d, err := daemon.New(cfg, st, nil, manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.LockFilePath == "" || status.DatabasePath == "" {
		t.Fatalf("incomplete status: %+v", status)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second start must fail while running")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon should report stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestNewEngineSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine, err := daemon.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if engine.Name() != "stub" {
		t.Fatalf("engine %q, want stub", engine.Name())
	}

	cfg.OCR.Engine = "imaginary"
	if _, err := daemon.NewEngine(cfg); err == nil {
		t.Fatal("unknown engine must be rejected")
	}
}
