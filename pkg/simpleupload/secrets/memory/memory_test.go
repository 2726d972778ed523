package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

func TestProvider_GetSecret(t *testing.T) {
	p := New(map[string]string{"region": "us-west-2"})

	v, err := p.GetSecret(context.Background(), "region")
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", v)

	_, err = p.GetSecret(context.Background(), "missing")
	assert.ErrorIs(t, err, simpleupload.ErrSecretNotFound)
}

func TestProvider_SetDelete(t *testing.T) {
	p := New(nil)
	p.Set("bucket_name", "b1")

	v, err := p.GetSecret(context.Background(), "bucket_name")
	require.NoError(t, err)
	assert.Equal(t, "b1", v)

	p.Delete("bucket_name")
	_, err = p.GetSecret(context.Background(), "bucket_name")
	assert.ErrorIs(t, err, simpleupload.ErrSecretNotFound)
}

func TestProvider_FailWith(t *testing.T) {
	p := New(map[string]string{"region": "us-west-2"})
	boom := errors.New("store down")
	p.FailWith(boom)

	_, err := p.GetSecret(context.Background(), "region")
	assert.ErrorIs(t, err, boom)

	p.FailWith(nil)
	_, err = p.GetSecret(context.Background(), "region")
	assert.NoError(t, err)
}

func TestProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).GetSecret(ctx, "region")
	assert.ErrorIs(t, err, simpleupload.ErrProviderUnavailable)
}
