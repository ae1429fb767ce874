package rblicense

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*FileStore, StaticPlatform) {
	t.Helper()
	p := StaticPlatform{Exe: t.TempDir(), DataDir: filepath.Join(t.TempDir(), "data")}
	return NewFileStore(p), p
}

func TestFileStore_Load_NotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, path, err := store.Load()
	assert.True(t, errors.Is(err, ErrLicenseFileNotFound), "got %v", err)
	assert.Empty(t, path)
}

func TestFileStore_Load_NoExeDir(t *testing.T) {
	store := NewFileStore(StaticPlatform{})
	_, _, err := store.Load()
	assert.True(t, errors.Is(err, ErrLicenseFileNotFound))
	assert.True(t, errors.Is(err, ErrNoDirectory))
}

func TestFileStore_Load_Empty(t *testing.T) {
	store, p := newTestStore(t)
	want := filepath.Join(p.Exe, LicenseFileName)
	require.NoError(t, os.WriteFile(want, []byte(" \r\n\t"), 0o600))

	key, path, err := store.Load()
	assert.True(t, errors.Is(err, ErrLicenseFileEmpty), "got %v", err)
	assert.Empty(t, key)
	assert.Equal(t, want, path)
}

func TestFileStore_SaveLoadClear(t *testing.T) {
	store, p := newTestStore(t)

	require.NoError(t, store.Save("  ROLLABALL1.a.b \n"))
	data, err := os.ReadFile(filepath.Join(p.Exe, LicenseFileName))
	require.NoError(t, err)
	assert.Equal(t, "ROLLABALL1.a.b", string(data))

	key, path, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "ROLLABALL1.a.b", key)
	assert.Equal(t, filepath.Join(p.Exe, LicenseFileName), path)

	require.NoError(t, store.Clear())
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStore_Save_BlankIsNoop(t *testing.T) {
	store, p := newTestStore(t)
	require.NoError(t, store.Save("   "))
	_, err := os.Stat(filepath.Join(p.Exe, LicenseFileName))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileStore_Clear_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Clear())
}

func TestFileStore_WriteMachineCodeIfAbsent(t *testing.T) {
	store, p := newTestStore(t)

	require.NoError(t, store.WriteMachineCodeIfAbsent("FIRST"))
	require.NoError(t, store.WriteMachineCodeIfAbsent("SECOND"))

	for _, dir := range []string{p.Exe, p.DataDir} {
		data, err := os.ReadFile(filepath.Join(dir, MachineCodeFileName))
		require.NoError(t, err)
		assert.Equal(t, "FIRST", string(data), dir)
	}
	assert.Len(t, store.MachineCodePaths(), 2)
}

func TestFileStore_WriteMachineCodeIfAbsent_PartialFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	p := StaticPlatform{Exe: t.TempDir(), DataDir: filepath.Join(blocker, "data")}
	err := NewFileStore(p).WriteMachineCodeIfAbsent("CODE")
	require.Error(t, err)

	data, readErr := os.ReadFile(filepath.Join(p.Exe, MachineCodeFileName))
	require.NoError(t, readErr)
	assert.Equal(t, "CODE", string(data))
}
