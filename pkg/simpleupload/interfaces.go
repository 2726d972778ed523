package simpleupload

import (
	"context"
	"time"
)

// SecretProvider abstracts a source of named configuration secrets.
// Implementations return ErrSecretNotFound (wrapped) when the secret is
// absent and ErrProviderUnavailable (wrapped) when the backing store
// cannot be reached.
type SecretProvider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// GetSecret returns the value of the named secret.
	GetSecret(ctx context.Context, name string) (string, error)
}

// PresignOptions contains parameters for minting a presigned upload URL.
type PresignOptions struct {
	// Expiry bounds the validity of the issued URL. It is always set
	// explicitly by the service; signers must not substitute an
	// unbounded default.
	Expiry time.Duration

	// ContentType, when non-empty, is baked into the signature so the
	// client must send the same Content-Type header on PUT.
	ContentType string

	// Metadata is attached to the stored object as user metadata.
	Metadata map[string]string
}

// Signer mints time-limited write URLs scoped to a single object key in
// the configured bucket. It never uploads data itself.
type Signer interface {
	PresignUpload(ctx context.Context, objectKey string, opts PresignOptions) (*PresignedUpload, error)
}

// SignerFactory builds a Signer from a resolved credential bundle. The
// service invokes it on first use and again after a credential refresh,
// so rotated secrets take effect without restarting the process.
type SignerFactory interface {
	NewSigner(bundle *CredentialBundle) (Signer, error)
}

// SignerFactoryFunc adapts a function to the SignerFactory interface.
type SignerFactoryFunc func(bundle *CredentialBundle) (Signer, error)

func (f SignerFactoryFunc) NewSigner(bundle *CredentialBundle) (Signer, error) {
	return f(bundle)
}
