package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe51296170827936ea5cce4b76994b0f"

func TestSignAndRecover(t *testing.T) {
	signer, err := NewSigner(testKey)
	require.NoError(t, err)

	msg := OperationMessage{
		Operation: OpBuy,
		MarketID:  7,
		Amount:    100_000,
		Timestamp: 1_700_000_000,
	}

	sig, err := signer.Sign(msg)
	require.NoError(t, err)

	recovered, err := RecoverSigner(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// A tampered message recovers a different address.
	msg.Amount++
	other, err := RecoverSigner(msg, sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), other)
}

func TestRecoverSigner_BadSignature(t *testing.T) {
	msg := OperationMessage{Operation: OpResolve, MarketID: 1, Timestamp: 1}

	_, err := RecoverSigner(msg, "0x1234")
	assert.Error(t, err)

	_, err = RecoverSigner(msg, "not-hex")
	assert.Error(t, err)
}

func TestNewSigner_AcceptsPrefix(t *testing.T) {
	a, err := NewSigner(testKey)
	require.NoError(t, err)
	b, err := NewSigner("0x" + testKey)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), b.Address())
}

func TestKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	require.NoError(t, err)

	plain, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, plain)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestLoadSigner_RawKey(t *testing.T) {
	signer, err := LoadSigner(KeyConfig{RawPrivateKey: testKey})
	require.NoError(t, err)

	want, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, want.Address(), signer.Address())
}

func TestLoadSigner_EncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "operator.key")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	signer, err := LoadSigner(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)

	want, err := NewSigner(testKey)
	require.NoError(t, err)
	assert.Equal(t, want.Address(), signer.Address())

	_, err = LoadSigner(KeyConfig{EncryptedKeyPath: path, KeyPassword: "wrong"})
	assert.Error(t, err)
}

func TestLoadSigner_NoSource(t *testing.T) {
	_, err := LoadSigner(KeyConfig{})
	assert.Error(t, err)
}
