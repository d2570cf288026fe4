// Package testutil provides shared helpers for integration-style tests:
// a thread-safe output buffer and a harness that materializes grid files
// into a temp directory and runs the app against them.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgridgo/internal/app"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output string
	Err    error
}

// RunApp writes the given grid files (relative path → contents) into a
// fresh temp directory and runs the app over it. The mutate callback may
// adjust the config before the run; a nil callback leaves the defaults.
func RunApp(t *testing.T, files map[string]string, mutate func(*app.Config)) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg, err := app.NewConfig(app.Config{
		GridPath:  tmpDir,
		LogFormat: "text",
		LogLevel:  "error",
	})
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	var out SafeBuffer
	a := app.NewApp(&out, cfg)
	runErr := a.Run(context.Background())

	return &HarnessResult{
		Output: out.String(),
		Err:    runErr,
	}
}
