package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sidana21/BinaryTradeX/internal/config"
)

// fakeBackend implements BackendStatus for tests.
type fakeBackend struct {
	ready   bool
	exited  chan struct{}
	exitErr error
}

func newFakeBackend(ready, running bool, exitErr error) *fakeBackend {
	fb := &fakeBackend{ready: ready, exited: make(chan struct{}), exitErr: exitErr}
	if !running {
		close(fb.exited)
	}
	return fb
}

func (f *fakeBackend) Ready() bool              { return f.ready }
func (f *fakeBackend) Exited() <-chan struct{}  { return f.exited }
func (f *fakeBackend) ExitErr() error           { return f.exitErr }

func statusBody(t *testing.T, h *HealthHandler) (int, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return rec.Code, body
}

func TestHealthHandler_Status_Running(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Host: "127.0.0.1", Port: 5001},
	}
	h := NewHealthHandler(cfg, "1.2.3", newFakeBackend(true, true, nil))

	code, body := statusBody(t, h)

	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", body["version"])
	}
	if body["backend_ready"] != true {
		t.Errorf("backend_ready = %v, want true", body["backend_ready"])
	}
	if body["backend_running"] != true {
		t.Errorf("backend_running = %v, want true", body["backend_running"])
	}
	if _, present := body["backend_exit_error"]; present {
		t.Error("backend_exit_error present, want absent")
	}
}

func TestHealthHandler_Status_Exited(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{Host: "127.0.0.1", Port: 5001},
	}
	h := NewHealthHandler(cfg, "dev", newFakeBackend(true, false, errors.New("exit status 3")))

	_, body := statusBody(t, h)

	if body["backend_running"] != false {
		t.Errorf("backend_running = %v, want false", body["backend_running"])
	}
	if body["backend_exit_error"] != "exit status 3" {
		t.Errorf("backend_exit_error = %v, want exit status 3", body["backend_exit_error"])
	}
}
