package simpleupload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tendant/simple-upload/pkg/simpleupload/objectkey"
)

// Error types
var (
	// ErrSecretNotFound indicates a named secret is absent from a provider
	ErrSecretNotFound = errors.New("secret not found")

	// ErrProviderUnavailable indicates the backing secret store could not be reached
	ErrProviderUnavailable = errors.New("secret provider unavailable")

	// ErrIncompleteCredentials indicates one or more required credential fields could not be resolved
	ErrIncompleteCredentials = errors.New("incomplete credentials")

	// ErrInvalidPath indicates an upload path that is malformed or escapes the configured root
	ErrInvalidPath = objectkey.ErrInvalidPath

	// ErrSigningFailed indicates the storage backend rejected the signing credentials
	ErrSigningFailed = errors.New("presign rejected by storage backend")

	// ErrBackendUnavailable indicates a network or timeout failure talking to the storage backend
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrFileTooLarge indicates the declared file size exceeds the configured maximum
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrExtensionNotAllowed indicates the file extension is not in the configured allow list
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
)

// ProviderError represents a failure fetching a named secret from a
// provider. It carries the secret name, never the secret value.
type ProviderError struct {
	Provider string
	Secret   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("secret %q from provider %s: %v", e.Secret, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IncompleteCredentialsError reports exactly which credential fields
// could not be resolved from any reachable provider.
type IncompleteCredentialsError struct {
	Missing []string
}

func (e *IncompleteCredentialsError) Error() string {
	return fmt.Sprintf("incomplete credentials: missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteCredentialsError) Unwrap() error {
	return ErrIncompleteCredentials
}

// SignError represents a failure minting a presigned URL for an object
// key on a storage backend.
type SignError struct {
	Backend string
	Key     string
	Err     error
}

func (e *SignError) Error() string {
	return fmt.Sprintf("presign failed for key %s on backend %s: %v", e.Key, e.Backend, e.Err)
}

func (e *SignError) Unwrap() error {
	return e.Err
}
