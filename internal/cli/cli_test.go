package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Paintersrp/cmdlaunch/internal/store"
)

// isolate keeps tests away from any cmdlaunch.yaml or CMDLAUNCH_* settings on
// the host.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	return filepath.Join(t.TempDir(), "commands.json")
}

func runCLI(t *testing.T, storePath string, args ...string) (string, string, error) {
	t.Helper()
	root, _ := newRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--file", storePath, "--log-level", "error"}, args...))
	err := root.ExecuteContext(stdcontext.Background())
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, storePath string, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, storePath, args...)
	if err != nil {
		t.Fatalf("%v: %v (stderr: %s)", args, err, stderr)
	}
	return stdout
}

func TestCommandLifecycle(t *testing.T) {
	path := isolate(t)

	out := mustRun(t, path, "list")
	if !strings.Contains(out, "No commands saved") {
		t.Fatalf("expected empty list message, got %q", out)
	}

	out = mustRun(t, path, "add", "build", "make", "build")
	if !strings.HasPrefix(out, "Added build (") {
		t.Fatalf("unexpected add output %q", out)
	}
	mustRun(t, path, "add", "serve", "python -m http.server")

	out = mustRun(t, path, "list")
	for _, want := range []string{"ID", "NAME", "COMMAND", "make build", "python -m http.server"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, path, "edit", "build", "--command", "make all")
	if !strings.HasPrefix(out, "Updated build (") {
		t.Fatalf("unexpected edit output %q", out)
	}

	mustRun(t, path, "dup", "serve")
	out = mustRun(t, path, "list")
	if strings.Count(out, "python -m http.server") != 2 {
		t.Fatalf("expected duplicated command in list:\n%s", out)
	}

	out = mustRun(t, path, "rm", "build")
	if out != "Removed 1 command(s)\n" {
		t.Fatalf("unexpected rm output %q", out)
	}

	cmds, err := store.New(path).Load()
	if err != nil {
		t.Fatalf("load store: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected two saved commands, got %+v", cmds)
	}
	if cmds[0].Name != "serve" || cmds[1].Name == "serve" {
		t.Fatalf("unexpected names after duplicate: %+v", cmds)
	}
	if cmds[0].ID == cmds[1].ID {
		t.Fatalf("duplicate must get its own id")
	}
}

func TestEditRequiresAChange(t *testing.T) {
	path := isolate(t)
	mustRun(t, path, "add", "build", "make")

	if _, _, err := runCLI(t, path, "edit", "build"); err == nil {
		t.Fatalf("expected edit without flags to fail")
	}
}

func TestCorruptStoreIsReported(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write store: %v", err)
	}

	_, _, err := runCLI(t, path, "list")
	var storeErr *store.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read store: %v", readErr)
	}
	if string(data) != "{not json" {
		t.Fatalf("corrupt store must not be overwritten, got %q", data)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	path := isolate(t)
	mustRun(t, path, "add", "build", "make build")
	mustRun(t, path, "add", "test", "go test ./...")

	exported := filepath.Join(t.TempDir(), "commands.yaml")
	mustRun(t, path, "export", "-o", exported)
	data, err := os.ReadFile(exported)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "command: make build") {
		t.Fatalf("expected YAML export, got:\n%s", data)
	}

	other := filepath.Join(t.TempDir(), "other.json")
	out := mustRun(t, other, "import", exported)
	if out != "Imported 2 command(s); 2 saved\n" {
		t.Fatalf("unexpected import output %q", out)
	}

	out = mustRun(t, other, "import", "--replace", exported)
	if out != "Imported 2 command(s); 2 saved\n" {
		t.Fatalf("unexpected replace output %q", out)
	}

	out = mustRun(t, other, "export", "--format", "json")
	if !strings.Contains(out, `"command": "go test ./..."`) {
		t.Fatalf("expected JSON export on stdout, got:\n%s", out)
	}
}

func TestConfigShowPrintsEffectiveSettings(t *testing.T) {
	path := isolate(t)
	t.Setenv("CMDLAUNCH_TERMINATE_GRACE_PERIOD", "7s")

	out := mustRun(t, path, "config", "show")
	for _, want := range []string{path, "grace_period: 7s", "interval: 5s", "# terminal strategies"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestRunRequiresSelection(t *testing.T) {
	path := isolate(t)
	mustRun(t, path, "add", "build", "make")

	_, _, err := runCLI(t, path, "run")
	if err == nil || !strings.Contains(err.Error(), "no commands selected") {
		t.Fatalf("expected selection error, got %v", err)
	}

	_, _, err = runCLI(t, path, "run", "--all", "build")
	if err == nil {
		t.Fatalf("expected --all with references to fail")
	}

	_, _, err = runCLI(t, path, "run", "-b", "--foreground", "build")
	if err == nil {
		t.Fatalf("expected conflicting mode flags to fail")
	}
}

func TestRunUnknownReference(t *testing.T) {
	path := isolate(t)
	mustRun(t, path, "add", "build", "make")

	if _, _, err := runCLI(t, path, "run", "deploy"); err == nil {
		t.Fatalf("expected unknown reference to fail")
	}
}

func TestRunBackgroundWaitsForExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	path := isolate(t)
	t.Setenv("CMDLAUNCH_REAP_INTERVAL", "50ms")
	mustRun(t, path, "add", "quick", "true")

	out := mustRun(t, path, "run", "--background", "--wait", "quick")
	for _, want := range []string{"Running 1 command(s)...", "quick: started in background", "quick: exited"} {
		if !strings.Contains(out, want) {
			t.Fatalf("run output missing %q:\n%s", want, out)
		}
	}
}

func TestSupportsInteractiveOutputRejectsBuffers(t *testing.T) {
	root, _ := newRootCommand()
	root.SetIn(strings.NewReader(""))
	root.SetOut(&bytes.Buffer{})
	if supportsInteractiveOutput(root) {
		t.Fatalf("expected buffers to be reported as non-interactive")
	}
}

func TestTuiRequiresTerminal(t *testing.T) {
	path := isolate(t)
	_, _, err := runCLI(t, path, "tui")
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestListRedactMasksCredentials(t *testing.T) {
	path := isolate(t)
	mustRun(t, path, "add", "db", "DB_PASSWORD=hunter2 ./migrate")

	if out := mustRun(t, path, "list"); !strings.Contains(out, "hunter2") {
		t.Fatalf("expected plain listing to show the command verbatim:\n%s", out)
	}
	out := mustRun(t, path, "list", "--redact")
	if strings.Contains(out, "hunter2") || !strings.Contains(out, "DB_PASSWORD=[redacted]") {
		t.Fatalf("expected masked listing:\n%s", out)
	}
}
