package app

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing app output in tests.
// The watch-mode server and the resolver both log from goroutines.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates an app instance for system testing, with output
// and logs captured in thread-safe buffers. Logs are forced to debug;
// set TERRANE_TEST_LOGS=true to dump them on test completion.
func SetupAppTest(t *testing.T, cfg Config) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	outBuf := &SafeBuffer{}
	logBuf := &SafeBuffer{}
	cfg.LogLevel = "debug"

	testApp, err := NewApp(outBuf, logBuf, cfg)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("TERRANE_TEST_LOGS") == "true" {
			t.Logf("--- Full log output for %s ---\n%s", t.Name(), logBuf.String())
		}
	})

	return testApp, outBuf, logBuf
}
