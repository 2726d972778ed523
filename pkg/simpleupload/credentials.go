package simpleupload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSecretFetchTimeout bounds a single secret-provider call.
const DefaultSecretFetchTimeout = 5 * time.Second

// requiredSecretNames is the canonical order in which credential fields
// are fetched and reported.
var requiredSecretNames = []string{
	SecretAccessKeyID,
	SecretSecretAccessKey,
	SecretRegion,
	SecretBucketName,
}

// CredentialResolver produces exactly one valid CredentialBundle from
// an ordered list of secret providers, or fails fast.
//
// Policy: providers are tried in priority order and the first reachable
// provider that yields a complete bundle wins wholesale. Fields are
// never mixed across providers, so a partially populated high-priority
// store cannot silently borrow fields from a lower-trust one. Within a
// provider the structured JSON secret takes precedence over the four
// per-field secrets.
//
// The resolved bundle is cached for the process lifetime. Refresh
// rebuilds it and swaps the cache atomically, so concurrent readers
// never observe a partially updated bundle.
type CredentialResolver struct {
	providers      []SecretProvider
	structuredName string
	fetchTimeout   time.Duration

	bundle atomic.Pointer[CredentialBundle]
	mu     sync.Mutex // serializes resolve/refresh builds
}

// ResolverOption configures a CredentialResolver.
type ResolverOption func(*CredentialResolver)

// WithFetchTimeout bounds each secret-provider call
// (default: DefaultSecretFetchTimeout).
func WithFetchTimeout(d time.Duration) ResolverOption {
	return func(r *CredentialResolver) {
		r.fetchTimeout = d
	}
}

// WithStructuredSecretName overrides the name of the structured JSON
// secret (default: SecretStructured).
func WithStructuredSecretName(name string) ResolverOption {
	return func(r *CredentialResolver) {
		r.structuredName = name
	}
}

// NewCredentialResolver creates a resolver over providers in priority
// order (highest first).
func NewCredentialResolver(providers []SecretProvider, opts ...ResolverOption) (*CredentialResolver, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one secret provider is required")
	}
	r := &CredentialResolver{
		providers:      providers,
		structuredName: SecretStructured,
		fetchTimeout:   DefaultSecretFetchTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Resolve returns the cached bundle, resolving it on first use.
// Resolution is idempotent: absent a Refresh, repeated calls return the
// identical bundle.
func (r *CredentialResolver) Resolve(ctx context.Context) (*CredentialBundle, error) {
	if b := r.bundle.Load(); b != nil {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.bundle.Load(); b != nil {
		return b, nil
	}

	b, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	r.bundle.Store(b)
	return b, nil
}

// Refresh discards the cached bundle, resolves a fresh one and swaps it
// in atomically. In-flight readers keep the bundle they already hold.
func (r *CredentialResolver) Refresh(ctx context.Context) (*CredentialBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	r.bundle.Store(b)
	return b, nil
}

// resolve walks the provider list and returns the first complete
// bundle. When no provider is complete it reports either provider
// unavailability (nothing reachable) or the exact set of fields missing
// from every reachable provider.
func (r *CredentialResolver) resolve(ctx context.Context) (*CredentialBundle, error) {
	var (
		missingSets [][]string
		lastErr     error
	)

	for _, p := range r.providers {
		bundle, err := r.fromProvider(ctx, p)
		if err != nil {
			// Unreachable provider: fall back to the next one.
			lastErr = err
			continue
		}
		missing := bundle.missingFields()
		if len(missing) == 0 {
			return bundle, nil
		}
		missingSets = append(missingSets, missing)
	}

	if len(missingSets) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no secret provider configured: %w", ErrProviderUnavailable)
	}
	return nil, &IncompleteCredentialsError{Missing: missingAcross(missingSets)}
}

// fromProvider builds a (possibly incomplete) bundle from a single
// provider. The structured secret is consulted first; when it is absent
// the four per-field secrets are fetched independently. A provider
// availability failure aborts the attempt.
func (r *CredentialResolver) fromProvider(ctx context.Context, p SecretProvider) (*CredentialBundle, error) {
	raw, err := r.fetch(ctx, p, r.structuredName)
	switch {
	case err == nil:
		var bundle CredentialBundle
		if uerr := json.Unmarshal([]byte(raw), &bundle); uerr != nil {
			return nil, &ProviderError{Provider: p.Name(), Secret: r.structuredName,
				Err: fmt.Errorf("malformed structured secret: %w", ErrProviderUnavailable)}
		}
		return &bundle, nil
	case errors.Is(err, ErrSecretNotFound):
		// No structured secret; fall through to per-field lookups.
	default:
		return nil, err
	}

	var bundle CredentialBundle
	fields := map[string]*string{
		SecretAccessKeyID:     &bundle.AccessKeyID,
		SecretSecretAccessKey: &bundle.SecretAccessKey,
		SecretRegion:          &bundle.Region,
		SecretBucketName:      &bundle.Bucket,
	}
	for _, name := range requiredSecretNames {
		value, err := r.fetch(ctx, p, name)
		if err != nil {
			if errors.Is(err, ErrSecretNotFound) {
				continue // reported via missingFields
			}
			return nil, err
		}
		*fields[name] = value
	}
	return &bundle, nil
}

// fetch performs one bounded secret lookup with a single retry on
// transient provider unavailability.
func (r *CredentialResolver) fetch(ctx context.Context, p SecretProvider, name string) (string, error) {
	value, err := r.fetchOnce(ctx, p, name)
	if err != nil && errors.Is(err, ErrProviderUnavailable) && ctx.Err() == nil {
		value, err = r.fetchOnce(ctx, p, name)
	}
	return value, err
}

func (r *CredentialResolver) fetchOnce(ctx context.Context, p SecretProvider, name string) (string, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	value, err := p.GetSecret(fctx, name)
	if err != nil {
		if fctx.Err() != nil && ctx.Err() == nil {
			err = fmt.Errorf("fetch timed out: %w", ErrProviderUnavailable)
		}
		return "", &ProviderError{Provider: p.Name(), Secret: name, Err: err}
	}
	return value, nil
}

// missingAcross reports the fields absent from every reachable
// provider, preserving canonical order. If the sets do not intersect
// (fields are split across providers, which the wholesale policy still
// rejects), the highest-priority provider's set is reported.
func missingAcross(sets [][]string) []string {
	counts := make(map[string]int)
	for _, set := range sets {
		for _, field := range set {
			counts[field]++
		}
	}
	var missing []string
	for _, name := range requiredSecretNames {
		if counts[name] == len(sets) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return sets[0]
	}
	return missing
}
