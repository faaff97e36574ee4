package app

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykanchan/pywebview-tw/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "base.html")
	require.NoError(t, os.WriteFile(tpl, []byte("<html>tpl</html>"), 0o644))

	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = filepath.Join(dir, "data")
	c.TemplatePath = tpl
	c.BasePort = 0
	c.ShutdownTimeout = time.Second
	return c
}

func TestRun_ServesCatalogDocuments(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer

	a, err := NewApp(context.Background(), cfg, &logs)
	require.NoError(t, err)
	e, err := a.catalog.Create(context.Background(), "wiki", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var url string
	require.Eventually(t, func() bool {
		var ok bool
		url, ok = a.Manager().URL(e.ID)
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	resp, err := http.Get(url + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Empty(t, a.Manager().Open())
	assert.Contains(t, logs.String(), "serving document")
}

func TestRun_AllConfiguredDocumentsFail(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenDocuments = []string{"missing"}

	a, err := NewApp(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document could be opened")
}

func TestNewApp_BackupConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "wikis"
	cfg.S3AccessKey = "ak"
	cfg.S3SecretKey = "sk"
	cfg.S3BaseEndpoint = "http://127.0.0.1:9000"

	a, err := NewApp(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	assert.NotNil(t, a.Manager())
}
