package staging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingManager(t *testing.T) {
	tmpDir := t.TempDir()
	mgr := NewManager(tmpDir)

	// Test FinalDir
	assert.Equal(t, tmpDir, mgr.FinalDir())

	// Test StagingDir
	expectedStaging := filepath.Join(tmpDir, ".staging", "2025-01-17")
	assert.Equal(t, expectedStaging, mgr.StagingDir("2025-01-17"))

	// Test PrepareStaging
	require.NoError(t, mgr.PrepareStaging("2025-01-17"))
	assert.DirExists(t, expectedStaging)

	// Test WriteToStaging
	content := []byte(`{"type":"quote"}` + "\n")
	size, err := mgr.WriteToStaging("2025-01-17", "SPX.jsonl", func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	stagedPath := filepath.Join(expectedStaging, "SPX.jsonl")
	got, err := os.ReadFile(stagedPath)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(got))

	// Verify no .tmp file exists
	assert.NoFileExists(t, stagedPath+".tmp")

	// Test CommitStaging
	require.NoError(t, mgr.CommitStaging("2025-01-17"))
	assert.FileExists(t, filepath.Join(tmpDir, "2025-01-17", "SPX.jsonl"))

	// Test CleanupStaging
	require.NoError(t, mgr.CleanupStaging("2025-01-17"))
	assert.NoDirExists(t, mgr.StagingDir("2025-01-17"))
}

func TestWriteToStaging_FailedWriteLeavesNothing(t *testing.T) {
	mgr := NewManager(t.TempDir())

	_, err := mgr.WriteToStaging("2025-01-17", "QQQ.jsonl", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("provider went away")
	})
	require.Error(t, err)

	entries, err := os.ReadDir(mgr.StagingDir("2025-01-17"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
