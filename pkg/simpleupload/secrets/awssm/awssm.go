// Package awssm provides a secret provider backed by AWS Secrets
// Manager.
package awssm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Config options for the Secrets Manager provider.
type Config struct {
	Region   string // AWS region; empty uses the default chain
	Endpoint string // Optional custom endpoint (LocalStack etc.)
	Prefix   string // Optional prefix prepended to every secret ID
}

// Client is the subset of the Secrets Manager API the provider uses.
type Client interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Provider implements simpleupload.SecretProvider on top of AWS
// Secrets Manager. Logical secret names map onto secret IDs, optionally
// under a prefix (e.g. prefix "myapp/" turns "bucket_name" into
// "myapp/bucket_name").
type Provider struct {
	client Client
	prefix string
}

// New creates a provider using the default AWS credential chain. The
// provider's own API credentials are unrelated to the upload signing
// credentials it serves.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Provider{
		client: secretsmanager.NewFromConfig(awsCfg, clientOpts...),
		prefix: cfg.Prefix,
	}, nil
}

// NewFromClient creates a provider around an existing client. Useful
// for tests.
func NewFromClient(client Client, prefix string) *Provider {
	return &Provider{client: client, prefix: prefix}
}

func (p *Provider) Name() string { return "awssm" }

func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.prefix + name),
	})
	if err != nil {
		return "", classify(err)
	}

	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	if len(out.SecretBinary) > 0 {
		return string(out.SecretBinary), nil
	}
	return "", fmt.Errorf("%s: empty secret value: %w", name, simpleupload.ErrSecretNotFound)
}

// classify folds SDK failures into the provider error contract:
// a missing secret is distinct from an unreachable store.
func classify(err error) error {
	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%v: %w", err, simpleupload.ErrSecretNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), simpleupload.ErrProviderUnavailable)
	}
	return fmt.Errorf("%v: %w", err, simpleupload.ErrProviderUnavailable)
}
