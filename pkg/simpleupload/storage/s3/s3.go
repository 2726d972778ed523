// Package s3 implements the simpleupload.Signer interface for S3 and
// S3-compatible services using presigned PUT URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Config options for the S3 signer that are independent of the resolved
// credential bundle.
type Config struct {
	Endpoint     string // Optional custom endpoint for S3-compatible services
	UsePathStyle bool   // Use path-style addressing (MinIO, LocalStack)

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm
}

// Signer mints presigned PUT URLs for a single bucket using static
// credentials from a resolved bundle.
type Signer struct {
	presignClient *awss3.PresignClient
	bucket        string
	config        Config
}

// NewSigner creates a signer from a resolved credential bundle.
func NewSigner(bundle *simpleupload.CredentialBundle, cfg Config) (*Signer, error) {
	if bundle == nil {
		return nil, errors.New("credential bundle is required")
	}
	if bundle.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	region := bundle.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			bundle.AccessKeyID,
			bundle.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Options = append(s3Options, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := awss3.NewFromConfig(awsCfg, s3Options...)

	return &Signer{
		presignClient: awss3.NewPresignClient(client),
		bucket:        bundle.Bucket,
		config:        cfg,
	}, nil
}

// Factory returns a simpleupload.SignerFactory that builds a signer
// with the given backend config for whichever bundle the service
// resolves.
func Factory(cfg Config) simpleupload.SignerFactoryFunc {
	return func(bundle *simpleupload.CredentialBundle) (simpleupload.Signer, error) {
		return NewSigner(bundle, cfg)
	}
}

// PresignUpload returns a presigned URL restricted to a PUT of exactly
// objectKey in the configured bucket. The URL carries its expiry; the
// signer never transfers object bytes.
func (s *Signer) PresignUpload(ctx context.Context, objectKey string, opts simpleupload.PresignOptions) (*simpleupload.PresignedUpload, error) {
	if opts.Expiry <= 0 {
		return nil, &simpleupload.SignError{Backend: "s3", Key: objectKey,
			Err: errors.New("presign expiry must be positive")}
	}

	input := &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	// Add server-side encryption if enabled
	if s.config.EnableSSE {
		switch s.config.SSEAlgorithm {
		case "AES256":
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		case "aws:kms":
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			if s.config.SSEKMSKeyID != "" {
				input.SSEKMSKeyId = aws.String(s.config.SSEKMSKeyID)
			}
		}
	}

	issuedAt := time.Now().UTC()
	result, err := s.presignClient.PresignPutObject(ctx, input, func(po *awss3.PresignOptions) {
		po.Expires = opts.Expiry
	})
	if err != nil {
		return nil, s.wrap(objectKey, err)
	}

	headers := make(map[string]string)
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	for k, v := range result.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return &simpleupload.PresignedUpload{
		URL:       result.URL,
		Method:    result.Method,
		ObjectKey: objectKey,
		ExpiresAt: issuedAt.Add(opts.Expiry),
		Headers:   headers,
	}, nil
}

// wrap classifies a presign failure so operators can tell a rejected
// credential apart from an unreachable backend.
func (s *Signer) wrap(objectKey string, err error) error {
	return &simpleupload.SignError{Backend: "s3", Key: objectKey, Err: classify(err)}
}

// credentialErrorCodes are S3 API error codes that indicate the signing
// credentials were rejected (revoked, rotated, or never valid).
var credentialErrorCodes = map[string]bool{
	"InvalidAccessKeyId":      true,
	"SignatureDoesNotMatch":   true,
	"ExpiredToken":            true,
	"InvalidToken":            true,
	"AccessDenied":            true,
	"CredentialsNotSupported": true,
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if credentialErrorCodes[apiErr.ErrorCode()] {
			return fmt.Errorf("%s: %w", apiErr.ErrorCode(), simpleupload.ErrSigningFailed)
		}
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), simpleupload.ErrBackendUnavailable)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, simpleupload.ErrBackendUnavailable)
	}

	return fmt.Errorf("%v: %w", err, simpleupload.ErrSigningFailed)
}
