package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndListNewestFirst(t *testing.T) {
	s := openTemp(t)
	for _, op := range []string{"split", "prepare", "pipeline"} {
		r, err := s.PutRun(Run{Op: op, Status: "success", Rows: 10})
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.When.IsZero())
	}

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "pipeline", runs[0].Op)
	assert.Equal(t, "split", runs[2].Op)

	runs, err = s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListEmpty(t *testing.T) {
	runs, err := openTemp(t).ListRuns(5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.PutRun(Run{Op: "train-local", Status: "error", Error: "folder missing"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "folder missing", runs[0].Error)
}
