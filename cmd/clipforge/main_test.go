package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/api"
)

func newTestContext(t *testing.T, handler http.Handler) *commandContext {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	apiFlag := strings.TrimPrefix(srv.URL, "http://")
	tokenFlag := "test-token"
	configFlag := ""
	return newCommandContext(&apiFlag, &tokenFlag, &configFlag)
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	cmd := newConfigInitCommand()
	cmd.SetArgs([]string{"--path", target})
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("output = %q", out.String())
	}

	// Without --overwrite a second run must refuse.
	cmd = newConfigInitCommand()
	cmd.SetArgs([]string{"--path", target})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestListCommandRendersItems(t *testing.T) {
	ctx := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/media" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(api.MediaListResponse{Items: []api.MediaItem{
			{ID: "abc-123", Title: "holiday", Status: "safe", Progress: 100, Sensitivity: "safe"},
		}})
	}))

	cmd := newListCommand(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "abc-123") || !strings.Contains(out.String(), "holiday") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestStatusCommandRendersCounts(t *testing.T) {
	ctx := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.StatusResponse{
			Running:    true,
			PID:        42,
			QueueDepth: 1,
			ItemCounts: map[string]int{"total": 3, "safe": 2, "failed": 1},
		})
	}))

	cmd := newStatusCommand(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "pid 42") || !strings.Contains(text, "1 item(s) in flight") {
		t.Fatalf("output = %q", text)
	}
}

func TestAddCommandRequiresTitle(t *testing.T) {
	ctx := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cmd := newAddCommand(ctx)
	cmd.SetArgs([]string{"clip.mp4"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--title") {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveCommandReportsSuccess(t *testing.T) {
	ctx := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cmd := newRemoveCommand(ctx)
	cmd.SetArgs([]string{"abc-123"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !strings.Contains(out.String(), "Removed abc-123") {
		t.Fatalf("output = %q", out.String())
	}
}
