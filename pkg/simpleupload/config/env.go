package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// WithEnv applies environment variable overrides using the provided
// prefix.
//
// Environment variable mapping:
//
// Server:
//
//	PORT - HTTP listen port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//
// Upload policy:
//
//	UPLOAD_KEY_PREFIX - Key root for uploads (default: "uploads")
//	PRESIGN_TTL_SECONDS - Presigned URL validity (default: 900)
//	MAX_FILENAME_BYTES - Sanitized filename cap (default: 200)
//	MAX_FILE_SIZE_MB - Declared size cap; 0 disables (default: 0)
//	ALLOWED_EXTENSIONS - Comma-separated allow list, e.g. ".pdf,.jpg"
//
// Credential sources (priority order, comma separated):
//
//	SECRETS_URL - e.g. "awssm://?region=us-west-2&prefix=myapp/,env://"
//	              "env://" reads the process environment;
//	              "env:///path/to/.env" overlays a dotenv file.
//
// Storage:
//
//	STORAGE_URL - "s3://" (default), with optional
//	              "?endpoint=http://localhost:9000&path_style=true",
//	              or "memory://?base_url=http://localhost:8080".
//
// The bucket itself is not configured here: bucket_name is a resolved
// credential field, sourced from the secret providers.
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}
		if v, ok := lookupEnv(prefix, "UPLOAD_KEY_PREFIX"); ok {
			c.KeyPrefix = v
		}

		if ttl, ok, err := parseIntEnv(prefix, "PRESIGN_TTL_SECONDS"); err != nil {
			return err
		} else if ok {
			c.PresignExpiry = time.Duration(ttl) * time.Second
		}
		if n, ok, err := parseIntEnv(prefix, "MAX_FILENAME_BYTES"); err != nil {
			return err
		} else if ok {
			c.MaxFilenameLength = n
		}
		if mb, ok, err := parseIntEnv(prefix, "MAX_FILE_SIZE_MB"); err != nil {
			return err
		} else if ok {
			c.MaxFileSizeBytes = int64(mb) * 1024 * 1024
		}
		if v, ok := lookupEnv(prefix, "ALLOWED_EXTENSIONS"); ok && v != "" {
			for _, ext := range strings.Split(v, ",") {
				ext = strings.TrimSpace(ext)
				if ext == "" {
					continue
				}
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				c.AllowedExtensions = append(c.AllowedExtensions, ext)
			}
		}

		if v, ok := lookupEnv(prefix, "SECRETS_URL"); ok && v != "" {
			sources, err := parseSecretSources(v)
			if err != nil {
				return err
			}
			c.SecretSources = sources
		}

		if v, ok := lookupEnv(prefix, "STORAGE_URL"); ok && v != "" {
			storage, err := parseStorageURL(v)
			if err != nil {
				return err
			}
			c.Storage = storage
		}

		return nil
	}
}

// parseSecretSources parses a comma-separated priority list of secret
// source URLs.
func parseSecretSources(raw string) ([]SecretSourceConfig, error) {
	var sources []SecretSourceConfig
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		src, err := parseSecretSource(item)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("SECRETS_URL contains no sources: %q", raw)
	}
	return sources, nil
}

func parseSecretSource(raw string) (SecretSourceConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return SecretSourceConfig{}, fmt.Errorf("invalid secret source URL %q: %w", raw, err)
	}

	cfg := map[string]string{}
	switch u.Scheme {
	case "env":
		if u.Path != "" && u.Path != "/" {
			cfg["file"] = u.Path
		}
		return SecretSourceConfig{Type: "env", Config: cfg}, nil
	case "awssm":
		q := u.Query()
		cfg["region"] = q.Get("region")
		cfg["endpoint"] = q.Get("endpoint")
		cfg["prefix"] = q.Get("prefix")
		return SecretSourceConfig{Type: "awssm", Config: cfg}, nil
	default:
		return SecretSourceConfig{}, fmt.Errorf("unsupported secret source scheme %q (use 'env://' or 'awssm://')", u.Scheme)
	}
}

func parseStorageURL(raw string) (StorageConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_URL %q: %w", raw, err)
	}

	q := u.Query()
	switch u.Scheme {
	case "s3":
		return StorageConfig{Type: "s3", Config: map[string]string{
			"endpoint":       q.Get("endpoint"),
			"path_style":     q.Get("path_style"),
			"sse":            q.Get("sse"),
			"sse_algorithm":  q.Get("sse_algorithm"),
			"sse_kms_key_id": q.Get("sse_kms_key_id"),
		}}, nil
	case "memory":
		return StorageConfig{Type: "memory", Config: map[string]string{
			"base_url": q.Get("base_url"),
		}}, nil
	default:
		return StorageConfig{}, fmt.Errorf("unsupported STORAGE_URL scheme %q (use 's3://' or 'memory://')", u.Scheme)
	}
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
