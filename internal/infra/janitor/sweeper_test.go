package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestSweepRemovesOnlyStaleMatches(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	stale := filepath.Join(dir, "features-old.csv")
	fresh := filepath.Join(dir, "features-new.csv")
	other := filepath.Join(dir, "notes-old.csv")
	touch(t, stale, now.Add(-2*time.Hour))
	touch(t, fresh, now.Add(-5*time.Minute))
	touch(t, other, now.Add(-2*time.Hour))

	s := New(dir, "features-*.csv", time.Minute, time.Hour, nil)
	s.now = func() time.Time { return now }

	require.Equal(t, 1, s.Sweep())
	require.NoFileExists(t, stale)
	require.FileExists(t, fresh)
	require.FileExists(t, other)
	require.Equal(t, 0, s.Sweep())
}

func TestStartAndStop(t *testing.T) {
	s := New(t.TempDir(), "features-*.csv", time.Hour, time.Hour, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
