package kernelcrypto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/kernelerrors"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	keys := NewKeyRing()
	keys.SetKey("snapshot", []byte("super-secret"))
	p := NewProvider(keys)

	payload := []byte("hello kernel")
	sig, err := p.Sign(context.Background(), payload, "snapshot")
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	ok, err := p.Verify(context.Background(), payload, sig, "snapshot")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyFailsOnTamperedPayload(t *testing.T) {
	keys := NewKeyRing()
	keys.SetKey("snapshot", []byte("super-secret"))
	p := NewProvider(keys)

	sig, err := p.Sign(context.Background(), []byte("original"), "snapshot")
	require.NoError(t, err)

	ok, err := p.Verify(context.Background(), []byte("tampered!"), sig, "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignUnknownKeyRefFails(t *testing.T) {
	keys := NewKeyRing()
	p := NewProvider(keys)

	_, err := p.Sign(context.Background(), []byte("x"), "missing")
	assert.Equal(t, kernelerrors.KindPreconditionNotMet, kernelerrors.KindOf(err))
}

func TestVerifyUnknownKeyRefFails(t *testing.T) {
	keys := NewKeyRing()
	p := NewProvider(keys)

	_, err := p.Verify(context.Background(), []byte("x"), []byte("sig"), "missing")
	assert.Equal(t, kernelerrors.KindPreconditionNotMet, kernelerrors.KindOf(err))
}

func TestKeyRotationOldKeyRefStillVerifiesOldSignature(t *testing.T) {
	keys := NewKeyRing()
	keys.SetKey("v1", []byte("secret-v1"))
	p := NewProvider(keys)

	sig, err := p.Sign(context.Background(), []byte("payload"), "v1")
	require.NoError(t, err)

	keys.SetKey("v2", []byte("secret-v2"))

	ok, err := p.Verify(context.Background(), []byte("payload"), sig, "v1")
	require.NoError(t, err)
	assert.True(t, ok)
}
