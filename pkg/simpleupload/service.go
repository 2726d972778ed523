package simpleupload

import "context"

// Service is the caller boundary for the presigned-upload pipeline.
type Service interface {
	// RequestUpload validates the request, derives a collision-free
	// storage key and returns a time-limited write URL for it.
	RequestUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error)

	// Credentials returns the resolved credential bundle, resolving it
	// on first use. The bundle is shared read-only; callers must not
	// mutate it.
	Credentials(ctx context.Context) (*CredentialBundle, error)

	// RefreshCredentials re-resolves the bundle (e.g. after secret
	// rotation) and atomically replaces the cached one. Subsequent
	// presign calls use a signer built from the fresh bundle.
	RefreshCredentials(ctx context.Context) (*CredentialBundle, error)
}
