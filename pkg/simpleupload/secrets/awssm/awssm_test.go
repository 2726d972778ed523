package awssm

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

type fakeClient struct {
	secrets map[string]*secretsmanager.GetSecretValueOutput
	err     error
	lastID  string
}

func (c *fakeClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	c.lastID = aws.ToString(params.SecretId)
	if c.err != nil {
		return nil, c.err
	}
	out, ok := c.secrets[c.lastID]
	if !ok {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return out, nil
}

func TestGetSecret_String(t *testing.T) {
	client := &fakeClient{secrets: map[string]*secretsmanager.GetSecretValueOutput{
		"bucket_name": {SecretString: aws.String("sm-bucket")},
	}}
	p := NewFromClient(client, "")

	v, err := p.GetSecret(context.Background(), "bucket_name")
	require.NoError(t, err)
	assert.Equal(t, "sm-bucket", v)
}

func TestGetSecret_Binary(t *testing.T) {
	client := &fakeClient{secrets: map[string]*secretsmanager.GetSecretValueOutput{
		"access_key_id": {SecretBinary: []byte("AKIABIN")},
	}}
	p := NewFromClient(client, "")

	v, err := p.GetSecret(context.Background(), "access_key_id")
	require.NoError(t, err)
	assert.Equal(t, "AKIABIN", v)
}

func TestGetSecret_Prefix(t *testing.T) {
	client := &fakeClient{secrets: map[string]*secretsmanager.GetSecretValueOutput{
		"myapp/region": {SecretString: aws.String("us-west-2")},
	}}
	p := NewFromClient(client, "myapp/")

	v, err := p.GetSecret(context.Background(), "region")
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", v)
	assert.Equal(t, "myapp/region", client.lastID)
}

func TestGetSecret_NotFound(t *testing.T) {
	p := NewFromClient(&fakeClient{}, "")

	_, err := p.GetSecret(context.Background(), "region")
	assert.ErrorIs(t, err, simpleupload.ErrSecretNotFound)
	assert.NotErrorIs(t, err, simpleupload.ErrProviderUnavailable)
}

func TestGetSecret_APIErrorIsUnavailable(t *testing.T) {
	client := &fakeClient{err: &smithy.GenericAPIError{
		Code:    "ThrottlingException",
		Message: "rate exceeded",
	}}
	p := NewFromClient(client, "")

	_, err := p.GetSecret(context.Background(), "region")
	assert.ErrorIs(t, err, simpleupload.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, simpleupload.ErrSecretNotFound)
}

func TestGetSecret_EmptyValue(t *testing.T) {
	client := &fakeClient{secrets: map[string]*secretsmanager.GetSecretValueOutput{
		"region": {},
	}}
	p := NewFromClient(client, "")

	_, err := p.GetSecret(context.Background(), "region")
	assert.ErrorIs(t, err, simpleupload.ErrSecretNotFound)
}
