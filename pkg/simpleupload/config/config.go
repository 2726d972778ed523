// Package config builds upload services from declarative server
// configuration, typically loaded from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/secrets/awssm"
	envsecrets "github.com/tendant/simple-upload/pkg/simpleupload/secrets/env"
	memorystorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
	s3storage "github.com/tendant/simple-upload/pkg/simpleupload/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on
// top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		KeyPrefix:         "uploads",
		PresignExpiry:     15 * time.Minute,
		MaxFilenameLength: 200,
		SecretSources: []SecretSourceConfig{
			{Type: "env", Config: map[string]string{}},
		},
		Storage: StorageConfig{Type: "s3", Config: map[string]string{}},
	}
}

// ServerConfig represents server configuration for the upload service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Upload policy
	KeyPrefix         string
	PresignExpiry     time.Duration
	MaxFilenameLength int
	MaxFileSizeBytes  int64
	AllowedExtensions []string

	// SecretSources lists the credential sources in priority order
	// (highest first).
	SecretSources []SecretSourceConfig

	// Storage selects the presigning backend.
	Storage StorageConfig
}

// SecretSourceConfig represents configuration for one secret provider.
type SecretSourceConfig struct {
	Type   string // "awssm", "env"
	Config map[string]string
}

// StorageConfig represents configuration for the presigning backend.
type StorageConfig struct {
	Type   string // "s3", "memory"
	Config map[string]string
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.PresignExpiry <= 0 {
		return errors.New("presign expiry must be positive")
	}
	if len(c.SecretSources) == 0 {
		return errors.New("at least one secret source is required")
	}
	for _, src := range c.SecretSources {
		if src.Type != "env" && src.Type != "awssm" {
			return fmt.Errorf("unknown secret source type %q (use 'env' or 'awssm')", src.Type)
		}
	}
	if c.Storage.Type != "s3" && c.Storage.Type != "memory" {
		return fmt.Errorf("unknown storage type %q (use 's3' or 'memory')", c.Storage.Type)
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService() (simpleupload.Service, error) {
	providers, err := c.buildProviders()
	if err != nil {
		return nil, fmt.Errorf("failed to build secret providers: %w", err)
	}

	factory, err := c.buildSignerFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to build signer factory: %w", err)
	}

	options := []simpleupload.Option{
		simpleupload.WithProviders(providers...),
		simpleupload.WithSignerFactory(factory),
		simpleupload.WithKeyPrefix(c.KeyPrefix),
		simpleupload.WithDefaultExpiry(c.PresignExpiry),
		simpleupload.WithMaxFilenameLength(c.MaxFilenameLength),
		simpleupload.WithMaxFileSize(c.MaxFileSizeBytes),
	}
	if len(c.AllowedExtensions) > 0 {
		options = append(options, simpleupload.WithAllowedExtensions(c.AllowedExtensions...))
	}

	return simpleupload.New(options...)
}

func (c *ServerConfig) buildProviders() ([]simpleupload.SecretProvider, error) {
	var providers []simpleupload.SecretProvider
	for _, src := range c.SecretSources {
		switch src.Type {
		case "env":
			var opts []envsecrets.Option
			if file := src.Config["file"]; file != "" {
				opts = append(opts, envsecrets.WithEnvFile(file))
			}
			providers = append(providers, envsecrets.New(opts...))
		case "awssm":
			p, err := awssm.New(context.Background(), awssm.Config{
				Region:   src.Config["region"],
				Endpoint: src.Config["endpoint"],
				Prefix:   src.Config["prefix"],
			})
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		default:
			return nil, fmt.Errorf("unknown secret source type %q", src.Type)
		}
	}
	return providers, nil
}

func (c *ServerConfig) buildSignerFactory() (simpleupload.SignerFactory, error) {
	switch c.Storage.Type {
	case "s3":
		return s3storage.Factory(s3storage.Config{
			Endpoint:     c.Storage.Config["endpoint"],
			UsePathStyle: c.Storage.Config["path_style"] == "true",
			EnableSSE:    c.Storage.Config["sse"] == "true",
			SSEAlgorithm: c.Storage.Config["sse_algorithm"],
			SSEKMSKeyID:  c.Storage.Config["sse_kms_key_id"],
		}), nil
	case "memory":
		var opts []memorystorage.Option
		if base := c.Storage.Config["base_url"]; base != "" {
			opts = append(opts, memorystorage.WithBaseURL(base))
		}
		return memorystorage.Factory(memorystorage.New(opts...)), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
}
