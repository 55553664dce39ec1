package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagemill/internal/config"
	"pagemill/internal/store"
)

// writeTestConfig points every configured directory at the test's temp tree
// so commands never touch the invoking user's home directory.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
export_dir = %q

[ocr]
engine = "stub"

[logging]
format = "console"
level = "error"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "export"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPagesListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "pages", "list")
	if err != nil {
		t.Fatalf("pages list: %v", err)
	}
	if !strings.Contains(out, "No pages") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPagesListRendersPageRows(t *testing.T) {
	configPath := writeTestConfig(t)
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := st.SavePage(context.Background(), &store.Page{
		Origin:   store.OriginUpload,
		FileName: "invoice.png",
		MimeType: "image/png",
	}); err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	st.Close()

	out, err := runCommand(t, "--config", configPath, "pages", "list")
	if err != nil {
		t.Fatalf("pages list: %v", err)
	}
	for _, want := range []string{"STATUS", "invoice.png", "pending_render", "0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "0 pages total, 0 queued") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "pagemill.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("init output missing path:\n%s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}

	out, err = runCommand(t, "--config", target, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "Config file: "+target) {
		t.Fatalf("show output missing resolved path:\n%s", out)
	}
}

func TestQueueClearOnEmptyStore(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !strings.Contains(out, "Removed 0 queue entries") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
