package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/cmdlaunch/internal/api"
	"github.com/Paintersrp/cmdlaunch/internal/metrics"
)

func TestNewServerRejectsTypedNilController(t *testing.T) {
	var ctrl api.Controller = (*mockController)(nil)
	_, err := NewServer(Config{Controller: ctrl})
	if err == nil {
		t.Fatalf("expected error when controller is typed nil")
	}
	if !strings.Contains(err.Error(), "mockController") {
		t.Fatalf("expected error to describe typed nil controller, got %v", err)
	}
}

func TestNewServerRejectsNilController(t *testing.T) {
	if _, err := NewServer(Config{}); err == nil {
		t.Fatalf("expected error when controller is nil")
	}
}

func TestNormalizeAddr(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           defaultAddr,
		":80":        "127.0.0.1:80",
		"0.0.0.0:80": "0.0.0.0:80",
		"[::]:80":    "[::]:80",
		"host:9000":  "host:9000",
		"[::1]:443":  "[::1]:443",
	}

	for input, expected := range tests {
		input, expected := input, expected
		t.Run(fmt.Sprintf("%s->%s", input, expected), func(t *testing.T) {
			t.Parallel()
			if got := normalizeAddr(input); got != expected {
				t.Fatalf("normalizeAddr(%q)=%q, want %q", input, got, expected)
			}
		})
	}
}

func TestHandleCommands(t *testing.T) {
	ctrl := &mockController{
		commandsFn: func(stdcontext.Context) ([]api.CommandReport, error) {
			return []api.CommandReport{{ID: "a1", Name: "build", Command: "make"}}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil)
	rec := httptest.NewRecorder()
	server.handleCommands(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec.Code)
	}
	var body map[string][]api.CommandReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding response: %v", err)
	}
	if len(body["commands"]) != 1 || body["commands"][0].Name != "build" {
		t.Fatalf("unexpected commands payload: %+v", body)
	}
}

func TestHandleCommandsEmptyListIsArray(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil)
	rec := httptest.NewRecorder()
	server.handleCommands(rec, req)

	if !strings.Contains(rec.Body.String(), `"commands":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandleCommandsError(t *testing.T) {
	ctrl := &mockController{
		commandsFn: func(stdcontext.Context) ([]api.CommandReport, error) {
			return nil, errors.New("boom")
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands", nil)
	rec := httptest.NewRecorder()
	server.handleCommands(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "internal_error" {
		t.Fatalf("expected internal_error code, got %q", body.Code)
	}
}

func TestHandleCommandsMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/commands", nil)
	rec := httptest.NewRecorder()
	server.handleCommands(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Fatalf("expected Allow header %q, got %q", http.MethodGet, allow)
	}
}

func TestHandleCommandByReference(t *testing.T) {
	ctrl := &mockController{
		commandFn: func(_ stdcontext.Context, ref string) (*api.CommandReport, error) {
			if ref != "build" {
				return nil, fmt.Errorf("%w: %s", api.ErrUnknownCommand, ref)
			}
			return &api.CommandReport{ID: "a1", Name: "build", Command: "make"}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands/build", nil)
	rec := httptest.NewRecorder()
	server.handleCommand(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/commands/deploy", nil)
	rec = httptest.NewRecorder()
	server.handleCommand(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "unknown_command" {
		t.Fatalf("expected unknown_command code, got %q", body.Code)
	}
	details, ok := body.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", body.Details)
	}
	if details["command"] != "deploy" {
		t.Fatalf("expected command key in details, got %v", details)
	}
	if _, ok := details["timestamp"]; !ok {
		t.Fatalf("expected timestamp key in details")
	}
}

func TestHandleCommandInvalidPath(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands/", nil)
	rec := httptest.NewRecorder()
	server.handleCommand(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCommandAmbiguous(t *testing.T) {
	ctrl := &mockController{
		commandFn: func(stdcontext.Context, string) (*api.CommandReport, error) {
			return nil, api.ErrAmbiguousCommand
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commands/dup", nil)
	rec := httptest.NewRecorder()
	server.handleCommand(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleProcesses(t *testing.T) {
	ctrl := &mockController{
		processesFn: func(stdcontext.Context) (*api.ProcessReport, error) {
			return &api.ProcessReport{
				GeneratedAt: time.Unix(123, 0),
				Count:       1,
				Processes:   []api.ProcessEntry{{ID: "h1", Name: "server", PID: 42, State: "running"}},
			}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/processes", nil)
	rec := httptest.NewRecorder()
	server.handleProcesses(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body api.ProcessReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Count != 1 || body.Processes[0].PID != 42 {
		t.Fatalf("unexpected process report: %+v", body)
	}
}

func TestHandleTerminate(t *testing.T) {
	var gotWait bool
	ctrl := &mockController{
		terminateFn: func(_ stdcontext.Context, wait bool) (*api.TerminateResult, error) {
			gotWait = wait
			return &api.TerminateResult{Requested: 2, Terminated: 2, Forced: 1, Completed: wait, GracePeriod: "3s"}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terminate?wait=true", nil)
	rec := httptest.NewRecorder()
	server.handleTerminate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotWait {
		t.Fatalf("expected wait flag to reach controller")
	}
	var body map[string]api.TerminateResult
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	result, ok := body["terminate"]
	if !ok {
		t.Fatalf("expected terminate field in response")
	}
	if result.Forced != 1 || !result.Completed {
		t.Fatalf("unexpected terminate result %+v", result)
	}
}

func TestHandleTerminateRejectsGet(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminate", nil)
	rec := httptest.NewRecorder()
	server.handleTerminate(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleTerminateInvalidWait(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terminate?wait=maybe", nil)
	rec := httptest.NewRecorder()
	server.handleTerminate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleTerminateUnavailable(t *testing.T) {
	ctrl := &mockController{
		terminateFn: func(stdcontext.Context, bool) (*api.TerminateResult, error) {
			return nil, api.ErrUnavailable
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/terminate", nil)
	rec := httptest.NewRecorder()
	server.handleTerminate(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, &mockController{})

	metrics.EmitBuildInfo()
	metrics.RecordLaunch(metrics.ModeFallback, true, 200*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics endpoint, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `cmdlaunch_launches_total{mode="fallback",result="ok"}`) {
		t.Fatalf("expected launch counter in body:\n%s", body)
	}
	if !strings.Contains(body, `cmdlaunch_launch_duration_seconds_count{mode="fallback"}`) {
		t.Fatalf("expected launch latency count in body:\n%s", body)
	}
	if !strings.Contains(body, "cmdlaunch_build_info{") {
		t.Fatalf("expected metrics output to include build info, got:\n%s", body)
	}
}

func TestRunServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctrl := &mockController{
		commandsFn: func(stdcontext.Context) ([]api.CommandReport, error) {
			return []api.CommandReport{{ID: "x", Name: "x", Command: "true"}}, nil
		},
	}
	server, err := NewServer(Config{Controller: ctrl, Listener: ln})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	resp, err := http.Get("http://" + server.Addr() + "/api/v1/commands")
	if err != nil {
		cancel()
		t.Fatalf("GET commands: %v", err)
	}
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(payload), `"name":"x"`) {
		cancel()
		t.Fatalf("unexpected response %d: %s", resp.StatusCode, payload)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after cancellation")
	}
}

type mockController struct {
	commandsFn  func(stdcontext.Context) ([]api.CommandReport, error)
	commandFn   func(stdcontext.Context, string) (*api.CommandReport, error)
	processesFn func(stdcontext.Context) (*api.ProcessReport, error)
	terminateFn func(stdcontext.Context, bool) (*api.TerminateResult, error)
}

func (m *mockController) Commands(ctx stdcontext.Context) ([]api.CommandReport, error) {
	if m.commandsFn != nil {
		return m.commandsFn(ctx)
	}
	return nil, nil
}

func (m *mockController) Command(ctx stdcontext.Context, ref string) (*api.CommandReport, error) {
	if m.commandFn != nil {
		return m.commandFn(ctx, ref)
	}
	return nil, api.ErrUnknownCommand
}

func (m *mockController) Processes(ctx stdcontext.Context) (*api.ProcessReport, error) {
	if m.processesFn != nil {
		return m.processesFn(ctx)
	}
	return &api.ProcessReport{}, nil
}

func (m *mockController) TerminateAll(ctx stdcontext.Context, wait bool) (*api.TerminateResult, error) {
	if m.terminateFn != nil {
		return m.terminateFn(ctx, wait)
	}
	return &api.TerminateResult{}, nil
}

func newTestServer(t *testing.T, ctrl api.Controller) *Server {
	t.Helper()
	server, err := NewServer(Config{Controller: ctrl})
	if err != nil {
		t.Fatalf("failed creating server: %v", err)
	}
	return server
}
