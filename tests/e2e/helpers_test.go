package main_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/classdesk/pkg/devserver"
)

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// buildClassdeskBinary compiles cmd/classdesk once per test run.
func buildClassdeskBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "classdesk-e2e")
		if err != nil {
			buildErr = err
			return
		}
		name := "classdesk"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		binPath = filepath.Join(dir, name)
		cmd := exec.Command("go", "build", "-o", binPath, "../../cmd/classdesk")
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, out: out}
		}
	})
	if buildErr != nil {
		t.Fatalf("building classdesk: %v", buildErr)
	}
	return binPath
}

type buildError struct {
	err error
	out []byte
}

func (e *buildError) Error() string { return e.err.Error() + "\n" + string(e.out) }

// startBackend serves a seeded reference backend under /api.
func startBackend(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := devserver.Open("")
	if err != nil {
		t.Fatalf("devserver.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := devserver.Seed(context.Background(), store); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	srv := httptest.NewServer(devserver.NewServer(store, "/api"))
	t.Cleanup(srv.Close)
	return srv
}

// runClassdesk runs the binary with an isolated config environment.
func runClassdesk(t *testing.T, dir string, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, buildClassdeskBinary(t), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"HOME="+dir,
		"XDG_CONFIG_HOME="+filepath.Join(dir, "xdg"),
		"CLASSDESK_CONFIG=",
		"CLASSDESK_SERVER_URL=",
		"CLASSDESK_TOKEN=",
	)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.Bytes(), errOut.Bytes(), err
}

func runClassdeskJSON(t *testing.T, dir string, v any, args ...string) error {
	t.Helper()
	out, stderr, err := runClassdesk(t, dir, args...)
	if err != nil {
		t.Logf("stderr: %s", stderr)
		return err
	}
	return json.Unmarshal(out, v)
}

// stepLogger prefixes test progress so long e2e runs are easy to follow.
type stepLogger struct {
	t     *testing.T
	start time.Time
}

func newStepLogger(t *testing.T) *stepLogger {
	return &stepLogger{t: t, start: time.Now()}
}

func (l *stepLogger) Step(msg string) {
	l.t.Helper()
	l.t.Logf("[%6s] %s", time.Since(l.start).Round(time.Millisecond), msg)
}

func (l *stepLogger) Success(msg string) {
	l.t.Helper()
	l.t.Logf("[%6s] ✓ %s", time.Since(l.start).Round(time.Millisecond), msg)
}
