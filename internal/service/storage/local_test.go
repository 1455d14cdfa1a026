package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	payload := []byte("agent manifest payload")
	result, err := p.Upload(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, result.Mode)
	assert.Equal(t, "local://"+result.RootHash, result.URI)
	assert.Len(t, result.RootHash, 64)

	data, err := p.Download(context.Background(), result.URI)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestLocalProviderContentAddressing(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	// 同一份内容重复上传得到同一个哈希
	a, err := p.Upload(context.Background(), []byte("same"))
	require.NoError(t, err)
	b, err := p.Upload(context.Background(), []byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a.RootHash, b.RootHash)

	c, err := p.Upload(context.Background(), []byte("different"))
	require.NoError(t, err)
	assert.NotEqual(t, a.RootHash, c.RootHash)
}

func TestLocalProviderRejectsBadURIs(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir())
	require.NoError(t, err)

	for _, uri := range []string{
		"storage://abc",
		"local://",
		"local://../escape",
		"plainstring",
	} {
		_, err := p.Download(context.Background(), uri)
		assert.Error(t, err, "uri %q", uri)
	}
}
