package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "uploads", cfg.KeyPrefix)
	assert.Equal(t, 15*time.Minute, cfg.PresignExpiry)
	assert.Equal(t, 200, cfg.MaxFilenameLength)
	require.Len(t, cfg.SecretSources, 1)
	assert.Equal(t, "env", cfg.SecretSources[0].Type)
	assert.Equal(t, "s3", cfg.Storage.Type)
}

func TestLoad_Options(t *testing.T) {
	cfg, err := Load(
		WithPort("9090"),
		WithEnvironment("production"),
		WithKeyPrefix("incoming"),
		WithPresignExpiry(5*time.Minute),
		WithMaxFileSize(10*1024*1024),
		WithAllowedExtensions(".pdf", ".jpg"),
		WithStorage(StorageConfig{Type: "memory", Config: map[string]string{}}),
	)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "incoming", cfg.KeyPrefix)
	assert.Equal(t, 5*time.Minute, cfg.PresignExpiry)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileSizeBytes)
	assert.Equal(t, []string{".pdf", ".jpg"}, cfg.AllowedExtensions)
	assert.Equal(t, "memory", cfg.Storage.Type)
}

func TestLoad_WithEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("UPLOAD_KEY_PREFIX", "media")
	t.Setenv("PRESIGN_TTL_SECONDS", "600")
	t.Setenv("MAX_FILE_SIZE_MB", "25")
	t.Setenv("ALLOWED_EXTENSIONS", "pdf, .jpg,png")
	t.Setenv("SECRETS_URL", "awssm://?region=us-west-2&prefix=myapp/,env://")
	t.Setenv("STORAGE_URL", "s3://?endpoint=http://localhost:9000&path_style=true")

	cfg, err := Load(WithEnv(""))
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "media", cfg.KeyPrefix)
	assert.Equal(t, 10*time.Minute, cfg.PresignExpiry)
	assert.Equal(t, int64(25*1024*1024), cfg.MaxFileSizeBytes)
	assert.Equal(t, []string{".pdf", ".jpg", ".png"}, cfg.AllowedExtensions)

	require.Len(t, cfg.SecretSources, 2)
	assert.Equal(t, "awssm", cfg.SecretSources[0].Type)
	assert.Equal(t, "us-west-2", cfg.SecretSources[0].Config["region"])
	assert.Equal(t, "myapp/", cfg.SecretSources[0].Config["prefix"])
	assert.Equal(t, "env", cfg.SecretSources[1].Type)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.Config["endpoint"])
	assert.Equal(t, "true", cfg.Storage.Config["path_style"])
}

func TestLoad_WithEnvPrefix(t *testing.T) {
	t.Setenv("UPLOAD_PORT", "7070")

	cfg, err := Load(WithEnv("UPLOAD_"))
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Run("BadTTL", func(t *testing.T) {
		t.Setenv("PRESIGN_TTL_SECONDS", "soon")
		_, err := Load(WithEnv(""))
		assert.Error(t, err)
	})

	t.Run("BadSecretScheme", func(t *testing.T) {
		t.Setenv("SECRETS_URL", "vault://")
		_, err := Load(WithEnv(""))
		assert.Error(t, err)
	})

	t.Run("BadStorageScheme", func(t *testing.T) {
		t.Setenv("STORAGE_URL", "gcs://")
		_, err := Load(WithEnv(""))
		assert.Error(t, err)
	})
}

func TestParseSecretSource_EnvFile(t *testing.T) {
	src, err := parseSecretSource("env:///etc/upload/.env")
	require.NoError(t, err)
	assert.Equal(t, "env", src.Type)
	assert.Equal(t, "/etc/upload/.env", src.Config["file"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"Defaults", func(*ServerConfig) {}, false},
		{"EmptyPort", func(c *ServerConfig) { c.Port = "" }, true},
		{"ZeroExpiry", func(c *ServerConfig) { c.PresignExpiry = 0 }, true},
		{"NoSources", func(c *ServerConfig) { c.SecretSources = nil }, true},
		{"BadSourceType", func(c *ServerConfig) {
			c.SecretSources = []SecretSourceConfig{{Type: "vault"}}
		}, true},
		{"BadStorageType", func(c *ServerConfig) { c.Storage.Type = "gcs" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildService_MemoryStorage(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "example-secret")
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("S3_BUCKET_NAME", "uploads-bucket")

	cfg, err := Load(
		WithStorage(StorageConfig{
			Type:   "memory",
			Config: map[string]string{"base_url": "http://localhost:8080"},
		}),
	)
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)

	upload, err := svc.RequestUpload(context.Background(), simpleupload.UploadRequest{
		FileName: "report.pdf",
	})
	require.NoError(t, err)
	assert.Contains(t, upload.URL, "http://localhost:8080/upload/uploads/")
	assert.Contains(t, upload.ObjectKey, "report.pdf")
}
