package simpleupload

// Request/Response DTOs

// UploadRequest contains the caller-supplied parameters for requesting
// a presigned upload URL. It is created per client interaction and
// never persisted.
type UploadRequest struct {
	// FileName is the client's original filename. Required; it is
	// sanitized before being embedded in the storage key.
	FileName string

	// CustomPath optionally replaces the configured key prefix. It is
	// validated against path traversal before any signing call.
	CustomPath string

	// ContentType, when non-empty, is baked into the presigned URL so
	// the client must send the same Content-Type on PUT.
	ContentType string

	// FileSize is the declared size in bytes; checked against the
	// configured maximum when the client supplies it.
	FileSize int64

	// Metadata is attached to the stored object as user metadata
	// (e.g. the authenticated uploader subject).
	Metadata map[string]string
}
