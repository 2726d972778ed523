// Package memory implements the simpleupload.Signer interface with
// locally HMAC-signed URLs. It needs no cloud backend, which makes it
// useful for tests, examples and development servers that accept the
// upload PUT themselves.
package memory

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Signature validation errors
var (
	// ErrMissingSignature is returned when the signature query parameter is missing
	ErrMissingSignature = errors.New("memory signer: missing signature parameter")

	// ErrMissingExpiration is returned when the expires query parameter is missing
	ErrMissingExpiration = errors.New("memory signer: missing expires parameter")

	// ErrExpired is returned when the presigned URL has expired
	ErrExpired = errors.New("memory signer: URL has expired")

	// ErrInvalidSignature is returned when the signature is invalid
	ErrInvalidSignature = errors.New("memory signer: invalid signature")
)

// Signer issues and validates HMAC-SHA256 signed upload URLs of the
// form <baseURL>/upload/<key>?signature=...&expires=....
type Signer struct {
	secretKey []byte
	baseURL   string
	now       func() time.Time
}

// Option is a functional option for configuring a Signer.
type Option func(*Signer)

// WithSecretKey sets the HMAC key. When omitted a random 32-byte key is
// generated, which is fine for a single-process deployment.
func WithSecretKey(key []byte) Option {
	return func(s *Signer) {
		s.secretKey = key
	}
}

// WithBaseURL prefixes issued URLs (e.g. "http://localhost:8080").
func WithBaseURL(baseURL string) Option {
	return func(s *Signer) {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithClock pins the signer's clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// New creates a new in-process signer.
func New(opts ...Option) *Signer {
	s := &Signer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.secretKey) == 0 {
		s.secretKey = make([]byte, 32)
		if _, err := rand.Read(s.secretKey); err != nil {
			panic(fmt.Sprintf("memory signer: cannot read random key: %v", err))
		}
	}
	return s
}

// Factory returns a simpleupload.SignerFactory that ignores the
// credential bundle and hands out this signer. The bundle is still
// resolved by the service, so credential failures surface the same way
// they would with a real backend.
func Factory(signer *Signer) simpleupload.SignerFactoryFunc {
	return func(_ *simpleupload.CredentialBundle) (simpleupload.Signer, error) {
		return signer, nil
	}
}

// PresignUpload implements simpleupload.Signer.
func (s *Signer) PresignUpload(ctx context.Context, objectKey string, opts simpleupload.PresignOptions) (*simpleupload.PresignedUpload, error) {
	if err := ctx.Err(); err != nil {
		return nil, &simpleupload.SignError{Backend: "memory", Key: objectKey,
			Err: fmt.Errorf("%v: %w", err, simpleupload.ErrBackendUnavailable)}
	}
	if opts.Expiry <= 0 {
		return nil, &simpleupload.SignError{Backend: "memory", Key: objectKey,
			Err: errors.New("presign expiry must be positive")}
	}

	expiresAt := s.now().UTC().Add(opts.Expiry)
	path := "/upload/" + objectKey
	signature := s.sign(http.MethodPut, path, expiresAt.Unix())

	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}

	return &simpleupload.PresignedUpload{
		URL:       fmt.Sprintf("%s%s?signature=%s&expires=%d", s.baseURL, path, signature, expiresAt.Unix()),
		Method:    http.MethodPut,
		ObjectKey: objectKey,
		ExpiresAt: expiresAt,
		Headers:   headers,
	}, nil
}

// ValidateRequest checks the signature and expiration of an incoming
// upload PUT issued by this signer.
func (s *Signer) ValidateRequest(r *http.Request) error {
	query := r.URL.Query()
	signature := query.Get("signature")
	expiresStr := query.Get("expires")

	if signature == "" {
		return ErrMissingSignature
	}
	if expiresStr == "" {
		return ErrMissingExpiration
	}
	expiresAt, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMissingExpiration, err)
	}

	return s.Validate(r.Method, r.URL.Path, signature, expiresAt)
}

// Validate checks a signature for a method, path and expiry timestamp.
func (s *Signer) Validate(method, path, signature string, expiresAt int64) error {
	if s.now().Unix() > expiresAt {
		return ErrExpired
	}

	expected := s.sign(method, path, expiresAt)

	// Constant-time comparison to prevent timing attacks.
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *Signer) sign(method, path string, expiresAt int64) string {
	h := hmac.New(sha256.New, s.secretKey)
	fmt.Fprintf(h, "%s|%s|%d", method, path, expiresAt)
	return hex.EncodeToString(h.Sum(nil))
}
