package cli_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tasker/internal/cli"
	"tasker/internal/commands"
	"tasker/internal/config"
	"tasker/internal/exitcode"
	"tasker/internal/service"
	"tasker/internal/testutil"
)

// testFactory creates a service factory that returns the given service.
func testFactory(svc service.Service) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return svc, nil
	}
}

func signedIn() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddUser("alice", "secret")
	svc.SignIn("alice")
	return svc
}

// staleService has stored credentials the server no longer accepts.
type staleService struct {
	*testutil.FakeService
}

func (s staleService) Bootstrap(ctx context.Context) service.Session {
	return service.Session{}
}

// closingService records Close calls.
type closingService struct {
	*testutil.FakeService
	closed int
}

func (s *closingService) Close() error {
	s.closed++
	return nil
}

func run(t *testing.T, factory cli.ServiceFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(testutil.NewFakeService()), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasker 0.1.0\n" {
		t.Errorf("expected 'tasker 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, testFactory(signedIn()), "list", "--status")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: -status\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_DefaultsToList(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	svc := signedIn()
	svc.AddTask("Buy milk", service.StatusPending)

	stdout, stderr, code := run(t, testFactory(svc))

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Buy milk") {
		t.Errorf("expected task listing, got %q", stdout)
	}
}

func TestDispatcher_AliasResolves(t *testing.T) {
	svc := signedIn()

	stdout, _, code := run(t, testFactory(svc), "ls", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found\\n', got %q", stdout)
	}
}

func TestDispatcher_ProtectedNotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := run(t, testFactory(svc), "list", "--config", t.TempDir())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: not logged in (run: tasker login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Filters()) != 0 {
		t.Error("protected command should not run")
	}
}

func TestDispatcher_ProtectedSessionExpired(t *testing.T) {
	svc := staleService{signedIn()}

	_, stderr, code := run(t, testFactory(svc), "dashboard", "--config", t.TempDir())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if stderr != "error: session expired (run: tasker login)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_PublicSkipsSessionCheck(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := run(t, testFactory(svc), "logout", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "not logged in\n" {
		t.Errorf("unexpected stdout %q", stdout)
	}
}

func TestDispatcher_FactoryError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, stderr, code := run(t, factory, "list", "--config", t.TempDir())

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: dial tcp: connection refused\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_NoneAccessSkipsFactory(t *testing.T) {
	called := false
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		called = true
		return nil, errors.New("unreachable")
	}

	_, _, code := run(t, factory, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if called {
		t.Error("factory should not be called for version")
	}
}

func TestDispatcher_StoreOverride(t *testing.T) {
	var got *config.Config
	svc := signedIn()
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		got = cfg
		return svc, nil
	}

	_, stderr, code := run(t, factory, "list", "--config", t.TempDir(), "--store", "memory", "--quiet", "--debug")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if got.Store != config.StoreMemory {
		t.Errorf("expected store %q, got %q", config.StoreMemory, got.Store)
	}
	if !got.Quiet || !got.Debug {
		t.Errorf("expected quiet and debug set, got %+v", got)
	}
	if !strings.Contains(stderr, "command=list") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
}

func TestDispatcher_InvalidStoreOverride(t *testing.T) {
	_, stderr, code := run(t, testFactory(signedIn()), "list", "--config", t.TempDir(), "--store", "disk")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid store: disk (want file, redis or memory)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDispatcher_ClosesService(t *testing.T) {
	svc := &closingService{FakeService: signedIn()}

	_, _, code := run(t, testFactory(svc), "list", "--config", t.TempDir())

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if svc.closed != 1 {
		t.Errorf("expected Close once, got %d", svc.closed)
	}
}

func TestDispatcher_ConfigureWritesStore(t *testing.T) {
	dir := t.TempDir()

	stdout, stderr, code := run(t, nil, "configure", "--config", dir, "--store", "memory", "--base-url", "https://example.com/api")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (%s)", exitcode.Success, code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "store: memory") {
		t.Errorf("config file missing store, got:\n%s", data)
	}
}

func TestDispatcher_MalformedConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte("store: [\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := run(t, nil, "version", "--config", dir)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: invalid config.yaml") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
