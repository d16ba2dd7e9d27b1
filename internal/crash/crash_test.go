package crash

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"moodboard/internal/eventloop"
)

type fakeFlusher struct {
	calls int
	err   error
	panic bool
}

func (f *fakeFlusher) FlushAll(ctx context.Context) error {
	f.calls++
	if f.panic {
		panic("flush exploded")
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("emergency save without deadline")
	}
	return f.err
}

// silenceStderr swaps os.Stderr for a pipe for the duration of the test.
func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func interceptExit(t *testing.T) *int {
	t.Helper()
	code := -1
	old := exitFn
	exitFn = func(c int) { code = c }
	t.Cleanup(func() { exitFn = old })
	return &code
}

func findReport(t *testing.T, dir string) string {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "crash-") && strings.HasSuffix(e.Name(), ".log") {
			return filepath.Join(dir, e.Name())
		}
	}
	t.Fatalf("no crash report in %s", dir)
	return ""
}

func TestRecoverWritesReportAndFlushes(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	dataDir := t.TempDir()
	f := &fakeFlusher{}

	func() {
		defer Recover(f, dataDir)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("expected exit code 2, got %d", *code)
	}
	if f.calls != 1 {
		t.Fatalf("emergency save called %d times", f.calls)
	}
	b, err := os.ReadFile(findReport(t, filepath.Join(dataDir, ReportDirName)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Panic: boom") || !strings.Contains(string(b), "Moodboard Crash Report") {
		t.Fatalf("unexpected report: %s", b)
	}
}

func TestRecoverSurvivesPanickingFlush(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	f := &fakeFlusher{panic: true}

	func() {
		defer Recover(f, t.TempDir())
		panic("first")
	}()

	if *code != 2 || f.calls != 1 {
		t.Fatalf("code=%d calls=%d", *code, f.calls)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	code := interceptExit(t)
	f := &fakeFlusher{}
	func() {
		defer Recover(f, t.TempDir())
	}()
	if *code != -1 || f.calls != 0 {
		t.Fatalf("Recover acted without a panic")
	}
}

func TestRecoverOnLoopSavesThroughEventLoop(t *testing.T) {
	silenceStderr(t)
	code := interceptExit(t)
	loop := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	f := &fakeFlusher{}

	func() {
		defer Recover(OnLoop(loop, f), t.TempDir())
		panic("ui")
	}()

	if *code != 2 || f.calls != 1 {
		t.Fatalf("code=%d calls=%d", *code, f.calls)
	}
}

type stuckCaller struct{}

func (stuckCaller) Call(ctx context.Context, _ func()) error { return context.DeadlineExceeded }

func TestOnLoopReportsUnavailableLoop(t *testing.T) {
	f := &fakeFlusher{}
	err := OnLoop(stuckCaller{}, f).FlushAll(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline error", err)
	}
	if f.calls != 0 {
		t.Fatalf("flusher ran off the loop")
	}
}

func TestWriteReportFallsBackToTemp(t *testing.T) {
	path, err := writeReport("", "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	if filepath.Dir(path) != filepath.Clean(os.TempDir()) {
		t.Fatalf("report written to %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "Panic: kaboom") {
		t.Fatalf("panic content missing: %s", b)
	}
}
