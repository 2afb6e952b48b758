// Package testutil provides the shared harness for integration tests:
// in-memory workspaces, captured debug logging, and assertion helpers
// over run results.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/terrane/internal/ctxlog"
	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/hcl"
	"github.com/specialistvlad/terrane/internal/schema"
)

// SafeBuffer is a goroutine-safe bytes.Buffer for capturing log output
// written by concurrent workers.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends to the buffer under the lock.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffered contents under the lock.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// RunResult bundles everything a test may inspect after running a
// workspace: the parsed configuration, the built graph, the resolution
// result, the first error encountered (load, build, context, or the
// aggregated run error), and the captured debug log.
type RunResult struct {
	Config *schema.Config
	Graph  *graph.Graph
	Result *graph.Result
	Err    error
	Logs   *SafeBuffer
}

// RunWorkspace loads the given in-memory workspace, builds its graph,
// and resolves it with the supplied options. Load and build errors are
// returned in Err rather than failing the test, so error-path tests can
// assert on them directly.
func RunWorkspace(t *testing.T, files map[string]string, opts graph.Options) RunResult {
	t.Helper()
	return RunWorkspaceWithContext(context.Background(), t, files, opts)
}

// RunWorkspaceWithContext is RunWorkspace with a caller-supplied
// context, for tests that exercise cancellation.
func RunWorkspaceWithContext(ctx context.Context, t *testing.T, files map[string]string, opts graph.Options) RunResult {
	t.Helper()

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx = ctxlog.WithLogger(ctx, logger)

	t.Cleanup(func() {
		if t.Failed() || os.Getenv("TERRANE_TEST_LOGS") == "true" {
			t.Logf("--- run logs for %s ---\n%s", t.Name(), logs.String())
		}
	})

	sources := make(map[string][]byte, len(files))
	for name, body := range files {
		sources[name] = []byte(body)
	}

	res := RunResult{Logs: logs}

	cfg, err := hcl.NewLoader().LoadSources(ctx, sources)
	if err != nil {
		res.Err = err
		return res
	}
	res.Config = cfg

	g, err := graph.Build(ctx, cfg)
	if err != nil {
		res.Err = err
		return res
	}
	res.Graph = g

	result, runErr := graph.NewRunner(g, opts).Run(ctx)
	res.Result = result
	if runErr != nil {
		res.Err = runErr
		return res
	}
	res.Err = result.Err()
	return res
}
