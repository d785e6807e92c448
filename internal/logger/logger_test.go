package logger

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSON(t *testing.T) {
	dir := t.TempDir()
	l := NewLoggerService(map[string]interface{}{"folder_path": dir, "max_file_mb": 1, "retention_days": 7})
	require.NoError(t, l.Start())

	l.LogAudit("upload received")
	require.NoError(t, l.Stop())

	data, err := os.ReadFile(l.CurrentFile())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	var found bool
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Contains(t, entry, "timestamp")
		if entry["msg"] == "upload received" {
			found = true
			assert.Equal(t, true, entry["audit"])
		}
	}
	assert.True(t, found)
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	l := NewLoggerService(map[string]interface{}{"folder_path": dir})
	require.NoError(t, l.Start())
	defer l.Stop()

	first := l.CurrentFile()
	l.maxFileBytes = 1
	l.Logger().Info("fill")
	require.NoError(t, l.rotateIfNeeded())
	assert.NotEqual(t, first, l.CurrentFile())
}

func TestZipAndCleanOldLogs(t *testing.T) {
	dir := t.TempDir()
	l := NewLoggerService(map[string]interface{}{"folder_path": dir, "retention_days": float64(3)})

	old := filepath.Join(dir, "app_old.log")
	fresh := filepath.Join(dir, "app_fresh.log")
	require.NoError(t, os.WriteFile(old, []byte("old\n"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("fresh\n"), 0644))
	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -10), now.AddDate(0, 0, -10)))

	assert.Equal(t, 1, l.zipAndCleanOldLogs(now))
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	zr, err := zip.OpenReader(filepath.Join(dir, "logs_"+now.Format("20060102")+".zip"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "app_old.log", zr.File[0].Name)
}

func TestLBeforeStart(t *testing.T) {
	SetGlobalLogger(nil)
	assert.NotNil(t, L())
	L().Info("dropped")
}
