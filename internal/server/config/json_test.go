package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":    "www.example:9000",
		"mode":             "local",
		"bucket_base_url":  "https://bucket.example",
		"bucket_token":     "tok",
		"request_timeout":  "45s",
		"probe_timeout":    int64(3 * time.Second),
		"database_dsn":     "postgres://db",
		"upload_dir":       "/srv/files",
		"blob_backend":     "s3",
		"s3_bucket":        "bucket",
		"s3_region":        "region",
		"s3_base_endpoint": "base_endpoint",
		"s3_access_key":    "user",
		"s3_secret_key":    "password",
		"api_secret_key":   "my_secret_key",
		"debug":            true,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "local", cfg.Mode)
		assert.Equal(t, "https://bucket.example", cfg.BucketBaseURL)
		assert.Equal(t, "tok", cfg.BucketToken)
		assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "/srv/files", cfg.UploadDir)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "my_secret_key", cfg.APISecretKey)
		assert.True(t, cfg.Debug)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"mode": "local"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "local", cfg.Mode)
		assert.Equal(t, ":8080", cfg.EndpointAddr)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "curl", cfg.CurlPath)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddr:   "defaults:1234",
			Mode:           "remote",
			RequestTimeout: 2 * time.Minute,
			S3Bucket:       "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "remote", cfg.Mode)
		assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
