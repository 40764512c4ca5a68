package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-markers"
)

func writeConfig(t *testing.T, reloadCommand string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	markerFile := filepath.Join(dir, "maps", "overworld.conf")
	cfg := fmt.Sprintf("marker_file: %q\nreload_command: %q\nactivity_log: %q\nactivity:\n  enabled: true\nlog_level: error\n",
		markerFile, reloadCommand, filepath.Join(dir, "activity.jsonl"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, listWorld, listJSON, addWorld, addReload, addActor = "", "", false, "", false, ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAddListReload(t *testing.T) {
	cfgPath, dir := writeConfig(t, "touch "+filepath.Join(t.TempDir(), "reloaded"))

	out, err := run(t, "--config", cfgPath, "add", "Spawn", "0", "64", "0")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, `Added POI "Spawn" at 0, 64, 0 in overworld.`) {
		t.Fatalf("unexpected add output %q", out)
	}
	if _, err := run(t, "--config", cfgPath, "add", "Spawn", "1", "2", "3"); err != nil {
		t.Fatalf("second add: %v", err)
	}

	out, err = run(t, "--config", cfgPath, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listing map[string][]markers.Marker
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("decode list output %q: %v", out, err)
	}
	if len(listing["overworld"]) != 2 || listing["overworld"][1].ID != "spawn-2" {
		t.Fatalf("unexpected listing %#v", listing)
	}

	out, err = run(t, "--config", cfgPath, "list")
	if err != nil || !strings.Contains(out, "spawn-2") {
		t.Fatalf("table list: %v\n%s", err, out)
	}

	if out, err := run(t, "--config", cfgPath, "reload"); err != nil || !strings.Contains(out, "reload succeeded") {
		t.Fatalf("reload: %v\n%s", err, out)
	}

	audit, err := os.ReadFile(filepath.Join(dir, "activity.jsonl"))
	if err != nil {
		t.Fatalf("activity log: %v", err)
	}
	if strings.Count(string(audit), `"verb":"marker.created"`) != 2 {
		t.Fatalf("expected two marker events in audit log:\n%s", audit)
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	cfgPath, dir := writeConfig(t, "")
	if _, err := run(t, "--config", cfgPath, "add", "Camp", "abc", "1", "2"); !strings.Contains(fmt.Sprint(err), "whole numbers") {
		t.Fatalf("expected coordinate error, got %v", err)
	}
	if _, err := run(t, "--config", cfgPath, "add", "--world", "nether", "Camp", "1", "1", "2"); err == nil {
		t.Fatalf("expected unknown world error")
	}
	if _, err := os.Stat(filepath.Join(dir, "maps", "overworld.conf")); !os.IsNotExist(err) {
		t.Fatalf("rejected adds must not create the marker file")
	}
}

func TestReloadFailureIsReported(t *testing.T) {
	cfgPath, _ := writeConfig(t, "exit 7")
	if _, err := run(t, "--config", cfgPath, "reload"); err == nil || !strings.Contains(err.Error(), "reload failed") {
		t.Fatalf("expected reload failure, got %v", err)
	}
}
