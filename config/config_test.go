// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, .env files, environment precedence and validation
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EngineOCRSpace, cfg.OCREngine)
	assert.Equal(t, 30*time.Second, cfg.OCRTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, "disk", cfg.StorageBackend)
	assert.True(t, strings.HasSuffix(cfg.DBPath, filepath.Join("canvass", "canvass.db")))
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	envFile := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("OCR_ENGINE=vision\nOCR_TIMEOUT=5s\nCANVASS_DB_PATH=/tmp/x.db\n"), 0644))
	t.Setenv("CANVASS_DB_PATH", "/tmp/from-env.db")
	t.Cleanup(func() {
		os.Unsetenv("OCR_ENGINE")
		os.Unsetenv("OCR_TIMEOUT")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, EngineVision, cfg.OCREngine)
	assert.Equal(t, 5*time.Second, cfg.OCRTimeout)
	assert.Equal(t, "/tmp/from-env.db", cfg.DBPath, "environment wins over the file")
}

func TestLoadMissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("OCR_ENGINE", "tesseract")
	t.Setenv("CANVASS_STORAGE_BACKEND", "s3")
	t.Setenv("CANVASS_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_ENGINE")
	assert.Contains(t, err.Error(), "CANVASS_STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "CANVASS_TIMEZONE")
}

func TestClockUsesLocation(t *testing.T) {
	cfg := &Config{Timezone: "Asia/Jakarta"}
	now := cfg.Clock()()
	assert.Equal(t, "Asia/Jakarta", now.Location().String())

	cfg.Timezone = "bogus"
	assert.Equal(t, time.UTC, cfg.Location())
}
