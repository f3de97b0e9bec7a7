package process

import (
	"sync"
	"testing"
	"time"
)

// collectLines gathers OnLine callbacks for assertions.
type collectLines struct {
	mu    sync.Mutex
	lines []string
}

func (c *collectLines) add(line []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, string(line))
}

func (c *collectLines) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func TestChild_LinesDeliveredInOrder(t *testing.T) {
	collected := &collectLines{}
	exited := make(chan error, 1)

	child := NewChild(Config{
		Name:   "echo-test",
		Binary: "/bin/sh",
		Args:   []string{"-c", `printf 'one\ntwo\nthree\n'`},
		OnLine: collected.add,
		OnExit: func(err error) { exited <- err },
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-exited:
		if err != nil {
			t.Fatalf("OnExit error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}

	want := []string{"one", "two", "three"}
	got := collected.snapshot()
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChild_WriteLineRoundTrip(t *testing.T) {
	collected := &collectLines{}
	lineCh := make(chan struct{}, 8)

	child := NewChild(Config{
		Name:   "cat-test",
		Binary: "/bin/cat",
		OnLine: func(line []byte) {
			collected.add(line)
			lineCh <- struct{}{}
		},
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer child.Stop() //nolint:errcheck // Best-effort cleanup

	if err := child.WriteLine([]byte(`{"action":"send"}`)); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}

	select {
	case <-lineCh:
	case <-time.After(5 * time.Second):
		t.Fatal("echoed line not received")
	}

	got := collected.snapshot()
	if got[0] != `{"action":"send"}` {
		t.Errorf("echoed line = %q", got[0])
	}
}

func TestChild_TrailingLinesDeliveredBeforeExit(t *testing.T) {
	collected := &collectLines{}
	const lineCount = 50

	// Snapshot the delivered-line count at exit time: every line written
	// before exit must already have been delivered when OnExit fires.
	seenAtExit := make(chan int, 1)

	child := NewChild(Config{
		Name:   "burst-test",
		Binary: "/bin/sh",
		Args:   []string{"-c", `i=0; while [ $i -lt 50 ]; do echo "line-$i"; i=$((i+1)); done; exit 0`},
		OnLine: collected.add,
		OnExit: func(error) { seenAtExit <- len(collected.snapshot()) },
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case seen := <-seenAtExit:
		if seen != lineCount {
			t.Errorf("lines delivered at exit = %d, want %d", seen, lineCount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}

	got := collected.snapshot()
	if len(got) != lineCount {
		t.Fatalf("lines = %d, want %d", len(got), lineCount)
	}
	if got[lineCount-1] != "line-49" {
		t.Errorf("last line = %q, want %q", got[lineCount-1], "line-49")
	}
}

func TestChild_StopTerminatesProcess(t *testing.T) {
	exited := make(chan error, 1)

	child := NewChild(Config{
		Name:            "sleep-test",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: 2 * time.Second,
		OnExit:          func(err error) { exited <- err },
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if child.Status() != StatusRunning {
		t.Fatalf("Status() = %v, want running", child.Status())
	}
	if child.PID() == 0 {
		t.Error("PID() = 0 for running child")
	}

	if err := child.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("OnExit not called after Stop")
	}

	// Requested stop is not a failure.
	if child.Status() != StatusStopped {
		t.Errorf("Status() = %v after Stop, want stopped", child.Status())
	}
	if !child.Stopping() {
		t.Error("Stopping() = false after Stop")
	}

	// Stopping an already-stopped child is a no-op.
	if err := child.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestChild_UnexpectedExitIsFailure(t *testing.T) {
	exited := make(chan error, 1)

	child := NewChild(Config{
		Name:   "fail-test",
		Binary: "/bin/sh",
		Args:   []string{"-c", "exit 3"},
		OnExit: func(err error) { exited <- err },
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-exited:
		if err == nil {
			t.Error("OnExit error = nil for non-zero exit")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}

	if child.Status() != StatusFailed {
		t.Errorf("Status() = %v, want failed", child.Status())
	}
}

func TestChild_WriteLineAfterExit(t *testing.T) {
	exited := make(chan error, 1)

	child := NewChild(Config{
		Name:   "gone-test",
		Binary: "/bin/true",
		OnExit: func(err error) { exited <- err },
	})

	if err := child.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-exited

	if err := child.WriteLine([]byte("late")); err == nil {
		t.Error("WriteLine() after exit expected error")
	}
}

func TestChild_StartMissingBinary(t *testing.T) {
	child := NewChild(Config{
		Name:   "missing",
		Binary: "/nonexistent/binary",
	})

	if err := child.Start(); err == nil {
		t.Error("Start() expected error for missing binary")
	}
}
