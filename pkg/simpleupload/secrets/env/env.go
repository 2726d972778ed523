// Package env provides a secret provider backed by the process
// environment, optionally overlaid with a dotenv file.
package env

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// defaultNames maps the resolver's logical secret names onto the
// conventional environment variable names.
var defaultNames = map[string]string{
	simpleupload.SecretAccessKeyID:     "AWS_ACCESS_KEY_ID",
	simpleupload.SecretSecretAccessKey: "AWS_SECRET_ACCESS_KEY",
	simpleupload.SecretRegion:          "AWS_REGION",
	simpleupload.SecretBucketName:      "S3_BUCKET_NAME",
	simpleupload.SecretStructured:      "AWS_CREDENTIALS_JSON",
}

// Provider reads secrets from environment variables. When configured
// with a dotenv file, values from the file take precedence over the
// process environment; a missing or unreadable file makes the provider
// report unavailability, it never fails silently.
type Provider struct {
	names map[string]string
	file  string

	mu      sync.Mutex
	overlay map[string]string
	loaded  bool
	loadErr error
}

// Option configures a Provider.
type Option func(*Provider)

// WithEnvFile overlays variables from a dotenv file at path.
func WithEnvFile(path string) Option {
	return func(p *Provider) {
		p.file = path
	}
}

// WithName maps a logical secret name onto a specific environment
// variable, overriding the default mapping.
func WithName(secret, envVar string) Option {
	return func(p *Provider) {
		p.names[secret] = envVar
	}
}

// New creates an environment-backed secret provider.
func New(opts ...Option) *Provider {
	p := &Provider{names: make(map[string]string, len(defaultNames))}
	for k, v := range defaultNames {
		p.names[k] = v
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Provider) Name() string { return "env" }

func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%v: %w", err, simpleupload.ErrProviderUnavailable)
	}

	key, ok := p.names[name]
	if !ok {
		key = strings.ToUpper(name)
	}

	if p.file != "" {
		overlay, err := p.fileValues()
		if err != nil {
			return "", fmt.Errorf("env file %s: %w", p.file, simpleupload.ErrProviderUnavailable)
		}
		if v, ok := overlay[key]; ok && v != "" {
			return v, nil
		}
	}

	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s (%s): %w", name, key, simpleupload.ErrSecretNotFound)
}

// fileValues parses the dotenv file once and caches the result.
func (p *Provider) fileValues() (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		p.overlay, p.loadErr = godotenv.Read(p.file)
		p.loaded = true
	}
	return p.overlay, p.loadErr
}
