package bridge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/relay-core/internal/session"
)

// fakeRunnerScript emits a canned handshake and then answers every send
// command with an ok result, echoing the command id.
const fakeRunnerScript = `#!/bin/sh
printf '{"event":"qr","payload":"1@abcxyz,fake"}\n'
printf '{"event":"authenticated"}\n'
printf '{"event":"ready","info":{"number":"6281234567890","name":"Alice"}}\n'
while read -r line; do
  id=$(printf '%s' "$line" | sed -n 's/.*"id":"\([^"]*\)".*/\1/p')
  printf '{"event":"result","id":"%s","ok":true}\n' "$id"
done
`

func writeScript(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runner.sh")
	if err := os.WriteFile(path, []byte(content), 0700); err != nil {
		t.Fatalf("writing fake runner: %v", err)
	}
	return path
}

func testFactory(t *testing.T, script string) *Factory {
	t.Helper()

	factory, err := NewFactory(Config{
		Binary:      "/bin/sh",
		Script:      script,
		StopTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewFactory() error = %v", err)
	}
	return factory
}

// handlerRecorder turns session.EventHandlers callbacks into channels.
type handlerRecorder struct {
	qr           chan string
	ready        chan struct{}
	disconnected chan string
}

func newHandlerRecorder() *handlerRecorder {
	return &handlerRecorder{
		qr:           make(chan string, 4),
		ready:        make(chan struct{}, 1),
		disconnected: make(chan string, 4),
	}
}

func (r *handlerRecorder) handlers() session.EventHandlers {
	return session.EventHandlers{
		OnQR:           func(p string) { r.qr <- p },
		OnReady:        func() { r.ready <- struct{}{} },
		OnDisconnected: func(reason string) { r.disconnected <- reason },
	}
}

func TestClient_HandshakeEvents(t *testing.T) {
	rec := newHandlerRecorder()
	factory := testFactory(t, writeScript(t, fakeRunnerScript))

	client, err := factory.Client(t.TempDir(), rec.handlers())
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	defer client.Destroy() //nolint:errcheck // Best-effort cleanup

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	select {
	case payload := <-rec.qr:
		if payload != "1@abcxyz,fake" {
			t.Errorf("qr payload = %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("qr event not delivered")
	}

	select {
	case <-rec.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("ready event not delivered")
	}

	ident, ok := client.Info()
	if !ok {
		t.Fatal("Info() unknown after ready")
	}
	if ident.PhoneNumber != "6281234567890" || ident.DisplayName != "Alice" {
		t.Errorf("identity = %+v", ident)
	}
}

func TestClient_SendRoundTrip(t *testing.T) {
	rec := newHandlerRecorder()
	factory := testFactory(t, writeScript(t, fakeRunnerScript))

	client, err := factory.Client(t.TempDir(), rec.handlers())
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	defer client.Destroy() //nolint:errcheck // Best-effort cleanup

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	<-rec.ready

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.SendMessage(ctx, "6281234567890"+session.ChatSuffix, "hi"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
}

func TestClient_RunnerCrashBecomesDisconnect(t *testing.T) {
	rec := newHandlerRecorder()
	factory := testFactory(t, writeScript(t, "#!/bin/sh\nexit 7\n"))

	client, err := factory.Client(t.TempDir(), rec.handlers())
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}

	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	select {
	case reason := <-rec.disconnected:
		if !strings.Contains(reason, "runner exited") {
			t.Errorf("disconnect reason = %q", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("crash did not surface as disconnected")
	}
}

func TestClient_DestroyIsIdempotentAndSilent(t *testing.T) {
	rec := newHandlerRecorder()
	factory := testFactory(t, writeScript(t, fakeRunnerScript))

	client, err := factory.Client(t.TempDir(), rec.handlers())
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	<-rec.ready

	if err := client.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := client.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v", err)
	}

	// A requested stop must not masquerade as a disconnect event.
	select {
	case reason := <-rec.disconnected:
		t.Errorf("unexpected disconnected event after Destroy: %q", reason)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestNewFactory_RequiresBinary(t *testing.T) {
	if _, err := NewFactory(Config{}); err == nil {
		t.Error("NewFactory() expected error for empty binary")
	}
}
