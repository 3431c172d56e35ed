package rollback_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulesweep/rulesweep/pkg/engine"
	"github.com/rulesweep/rulesweep/pkg/rollback"
	"github.com/rulesweep/rulesweep/pkg/rule"
	"github.com/rulesweep/rulesweep/pkg/scanner"
	"github.com/rulesweep/rulesweep/pkg/store"
	"github.com/rulesweep/rulesweep/pkg/walker"
)

// executeOnce runs one rename execution so there is something to roll back.
func executeOnce(t *testing.T, s *store.Store, root, backups string) (int64, string, string) {
	t.Helper()

	original := "class OldName {}\n"
	target := filepath.Join(root, "a.cs")
	require.NoError(t, os.WriteFile(target, []byte(original), 0o644))

	eng := engine.New(scanner.New(walker.New(walker.Options{}), 1), s, backups)
	res, err := eng.Execute(context.Background(), []rule.Rule{{
		ID: 1, Name: "rename", SearchPattern: "OldName", ReplacementText: "NewName",
		CaseSensitive: true, IsActive: true,
	}}, []scanner.Project{{ID: 1, Name: "app", RootPath: root, IsActive: true}})
	require.NoError(t, err)
	require.Equal(t, 1, res.FilesModified)

	return res.ExecutionID, target, original
}

func TestRollback_RestoresOriginalContent(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	execID, target, original := executeOnce(t, s, t.TempDir(), t.TempDir())

	res, err := rollback.New(s).Rollback(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restored)
	assert.Zero(t, res.Failed)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	e, err := s.GetExecution(ctx, execID)
	require.NoError(t, err)
	assert.NotNil(t, e.RolledBackAt)
}

func TestRollback_Idempotent(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	execID, target, original := executeOnce(t, s, t.TempDir(), t.TempDir())

	m := rollback.New(s)
	_, err = m.Rollback(ctx, execID)
	require.NoError(t, err)

	// Scribble over the file, then roll back again: the backup wins again.
	require.NoError(t, os.WriteFile(target, []byte("something else\n"), 0o644))

	res, err := m.Rollback(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restored)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRollback_RecreatesDeletedDirectory(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	root := t.TempDir()
	sub := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	execID, target, original := executeOnce(t, s, sub, t.TempDir())

	require.NoError(t, os.RemoveAll(sub))

	res, err := rollback.New(s).Rollback(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Restored)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestRollback_MissingBackupReportedPerFile(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	execID, _, _ := executeOnce(t, s, t.TempDir(), t.TempDir())

	files, err := s.ListModifiedFiles(ctx, execID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NoError(t, os.Remove(files[0].BackupPath))

	res, err := rollback.New(s).Rollback(ctx, execID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Restored)
	require.Len(t, res.Files, 1)
	assert.False(t, res.Files[0].Restored)
	assert.Contains(t, res.Files[0].Message, "backup")

	// An incomplete rollback must not stamp the execution.
	e, err := s.GetExecution(ctx, execID)
	require.NoError(t, err)
	assert.Nil(t, e.RolledBackAt)
}

func TestRollback_UnknownExecution(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = rollback.New(s).Rollback(context.Background(), 999)
	require.ErrorIs(t, err, store.ErrNotFound)
}
