//go:build e2e

package e2e

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/agentflow/internal/export"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// checkGolden compares the mermaid rendering of report against a golden
// file. With -update it rewrites the file instead.
// Run with: go test -tags e2e ./internal/e2e/ -update
func checkGolden(t *testing.T, name string, report any) {
	t.Helper()

	actual, err := export.Mermaid(report)
	require.NoError(t, err)

	goldenPath := filepath.Join(goldenDir(), name)
	if *update {
		require.NoError(t, os.MkdirAll(goldenDir(), 0o755))
		require.NoError(t, os.WriteFile(goldenPath, []byte(actual), 0o644))
		t.Logf("updated %s", name)
		return
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		t.Skipf("golden file %s not found; run with -update to generate", name)
		return
	}
	require.NoError(t, err)
	assert.Equal(t, string(golden), actual, "mermaid for %s does not match golden file", name)
}
