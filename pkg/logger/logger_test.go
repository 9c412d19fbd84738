package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose", "text")
	require.Error(t, err)
}

func TestFileSinkAppendsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "podsync.log")

	log, err := NewWithFile("info", "json", path)
	require.NoError(t, err)
	assert.Equal(t, path, log.FilePath())

	log.WithComponent("test").Info("Cron: starting auto-import", "feed_url", "https://example.com/feed")
	log.Debug("filtered out by level")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Cron: starting auto-import")
	assert.Contains(t, string(data), "https://example.com/feed")
	assert.NotContains(t, string(data), "filtered out by level")
}

func TestConvertToFieldsHandlesOddArgs(t *testing.T) {
	fields := convertToFields([]interface{}{"count", 3, "error", errors.New("boom"), "dangling"})
	require.Len(t, fields, 3)
	assert.Equal(t, "count", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
	assert.Equal(t, "dangling", fields[2].Key)
}
