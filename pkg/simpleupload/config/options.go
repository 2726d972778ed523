package config

import "time"

// WithPort sets the HTTP listen port.
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port != "" {
			c.Port = port
		}
		return nil
	}
}

// WithEnvironment sets the runtime environment label.
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env != "" {
			c.Environment = env
		}
		return nil
	}
}

// WithKeyPrefix sets the key root for uploads without a custom path.
func WithKeyPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.KeyPrefix = prefix
		return nil
	}
}

// WithPresignExpiry sets the presigned URL validity.
func WithPresignExpiry(d time.Duration) Option {
	return func(c *ServerConfig) error {
		c.PresignExpiry = d
		return nil
	}
}

// WithMaxFileSize caps the declared upload size in bytes; zero disables
// the check.
func WithMaxFileSize(n int64) Option {
	return func(c *ServerConfig) error {
		c.MaxFileSizeBytes = n
		return nil
	}
}

// WithAllowedExtensions restricts uploads to the given extensions.
func WithAllowedExtensions(exts ...string) Option {
	return func(c *ServerConfig) error {
		c.AllowedExtensions = exts
		return nil
	}
}

// WithSecretSources replaces the secret source list (priority order,
// highest first).
func WithSecretSources(sources ...SecretSourceConfig) Option {
	return func(c *ServerConfig) error {
		c.SecretSources = sources
		return nil
	}
}

// WithStorage replaces the storage backend configuration.
func WithStorage(storage StorageConfig) Option {
	return func(c *ServerConfig) error {
		c.Storage = storage
		return nil
	}
}
