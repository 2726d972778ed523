package simpleupload

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-upload/pkg/simpleupload/objectkey"
)

// DefaultExpiry is the presigned URL validity used when no explicit
// expiry is configured.
const DefaultExpiry = 15 * time.Minute

// DefaultKeyPrefix is the key root used when none is configured.
const DefaultKeyPrefix = "uploads"

// service implements the Service interface.
type service struct {
	resolver  *CredentialResolver
	providers []SecretProvider
	factory   SignerFactory
	generator objectkey.Generator

	expiry            time.Duration
	keyPrefix         string
	maxFilenameBytes  int
	maxFileSize       int64
	allowedExtensions []string
	resolverOpts      []ResolverOption

	// signer is lazily built from the resolved bundle and rebuilt when
	// the bundle is swapped by a refresh.
	signerMu     sync.Mutex
	signer       Signer
	signerBundle *CredentialBundle
}

// Option represents a functional option for configuring the service.
type Option func(*service)

// WithProviders sets the secret providers in priority order (highest
// first).
func WithProviders(providers ...SecretProvider) Option {
	return func(s *service) {
		s.providers = append(s.providers, providers...)
	}
}

// WithResolverOptions forwards options to the internal credential
// resolver (fetch timeout, structured secret name).
func WithResolverOptions(opts ...ResolverOption) Option {
	return func(s *service) {
		s.resolverOpts = append(s.resolverOpts, opts...)
	}
}

// WithSignerFactory sets the factory used to build a Signer from the
// resolved credential bundle.
func WithSignerFactory(factory SignerFactory) Option {
	return func(s *service) {
		s.factory = factory
	}
}

// WithKeyGenerator replaces the default timestamped key generator.
func WithKeyGenerator(generator objectkey.Generator) Option {
	return func(s *service) {
		s.generator = generator
	}
}

// WithKeyPrefix sets the key root for requests without a custom path
// (default: DefaultKeyPrefix).
func WithKeyPrefix(prefix string) Option {
	return func(s *service) {
		s.keyPrefix = prefix
	}
}

// WithDefaultExpiry sets the presigned URL validity
// (default: DefaultExpiry).
func WithDefaultExpiry(d time.Duration) Option {
	return func(s *service) {
		s.expiry = d
	}
}

// WithMaxFilenameLength caps the sanitized filename component of
// generated keys, in bytes.
func WithMaxFilenameLength(n int) Option {
	return func(s *service) {
		s.maxFilenameBytes = n
	}
}

// WithMaxFileSize rejects requests whose declared size exceeds n bytes.
// Zero disables the check.
func WithMaxFileSize(n int64) Option {
	return func(s *service) {
		s.maxFileSize = n
	}
}

// WithAllowedExtensions restricts uploads to the given extensions
// (e.g. ".pdf", ".jpg"). Empty allows all types.
func WithAllowedExtensions(exts ...string) Option {
	return func(s *service) {
		s.allowedExtensions = append(s.allowedExtensions, exts...)
	}
}

// New creates a new service instance with the given options.
func New(options ...Option) (Service, error) {
	s := &service{
		expiry:    DefaultExpiry,
		keyPrefix: DefaultKeyPrefix,
	}

	for _, option := range options {
		option(s)
	}

	if s.factory == nil {
		return nil, errors.New("signer factory is required")
	}
	if len(s.providers) == 0 {
		return nil, errors.New("at least one secret provider is required")
	}

	resolver, err := NewCredentialResolver(s.providers, s.resolverOpts...)
	if err != nil {
		return nil, err
	}
	s.resolver = resolver

	if s.generator == nil {
		gen := objectkey.NewTimestampedGenerator(s.keyPrefix)
		gen.MaxFilenameBytes = s.maxFilenameBytes
		s.generator = gen
	}

	return s, nil
}

func (s *service) RequestUpload(ctx context.Context, req UploadRequest) (*PresignedUpload, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	// Malformed-request failures (including path traversal) surface
	// before any credential or signing call.
	key, err := s.generator.GenerateKey(objectkey.Request{
		FileName:   req.FileName,
		CustomPath: req.CustomPath,
	})
	if err != nil {
		return nil, err
	}

	bundle, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := s.signerFor(bundle)
	if err != nil {
		return nil, err
	}

	opts := PresignOptions{
		Expiry:      s.expiry,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}

	upload, err := signer.PresignUpload(ctx, key, opts)
	if err != nil && errors.Is(err, ErrBackendUnavailable) && ctx.Err() == nil {
		// One retry for transient network failure on the signing call.
		upload, err = signer.PresignUpload(ctx, key, opts)
	}
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (s *service) Credentials(ctx context.Context) (*CredentialBundle, error) {
	return s.resolver.Resolve(ctx)
}

func (s *service) RefreshCredentials(ctx context.Context) (*CredentialBundle, error) {
	bundle, err := s.resolver.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.signerMu.Lock()
	s.signer = nil
	s.signerBundle = nil
	s.signerMu.Unlock()

	return bundle, nil
}

// signerFor returns the cached signer when it was built from the same
// bundle, rebuilding otherwise. Bundle identity is pointer identity:
// the resolver swaps in a fresh allocation on every refresh.
func (s *service) signerFor(bundle *CredentialBundle) (Signer, error) {
	s.signerMu.Lock()
	defer s.signerMu.Unlock()

	if s.signer != nil && s.signerBundle == bundle {
		return s.signer, nil
	}

	signer, err := s.factory.NewSigner(bundle)
	if err != nil {
		return nil, fmt.Errorf("build signer: %w", err)
	}
	s.signer = signer
	s.signerBundle = bundle
	return signer, nil
}

func (s *service) validateRequest(req UploadRequest) error {
	if strings.TrimSpace(req.FileName) == "" {
		return errors.New("file name is required")
	}
	if s.maxFileSize > 0 && req.FileSize > s.maxFileSize {
		return fmt.Errorf("%d bytes: %w", req.FileSize, ErrFileTooLarge)
	}
	if len(s.allowedExtensions) > 0 {
		ext := strings.ToLower(path.Ext(req.FileName))
		allowed := false
		for _, e := range s.allowedExtensions {
			if strings.ToLower(e) == ext {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%q: %w", ext, ErrExtensionNotAllowed)
		}
	}
	return nil
}
