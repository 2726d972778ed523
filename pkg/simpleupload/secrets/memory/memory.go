// Package memory provides an in-memory secret provider for tests and
// embedded use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Provider is an in-memory implementation of
// simpleupload.SecretProvider.
type Provider struct {
	mu     sync.RWMutex
	values map[string]string
	err    error
}

// New creates a provider seeded with the given values.
func New(values map[string]string) *Provider {
	p := &Provider{values: make(map[string]string, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

func (p *Provider) Name() string { return "memory" }

// Set stores or replaces a secret value.
func (p *Provider) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[name] = value
}

// Delete removes a secret.
func (p *Provider) Delete(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, name)
}

// FailWith makes every subsequent GetSecret return err; a nil err
// restores normal behavior. Used to simulate an unreachable store.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%v: %w", err, simpleupload.ErrProviderUnavailable)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.err != nil {
		return "", p.err
	}
	value, ok := p.values[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, simpleupload.ErrSecretNotFound)
	}
	return value, nil
}
