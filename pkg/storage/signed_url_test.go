package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("exp-1", "exports/inventory.csv")
	require.NoError(t, err)
	require.True(t, expiresAt.After(time.Now()))

	id, path, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "exp-1", id)
	require.Equal(t, "exports/inventory.csv", path)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("exp-1", "exports/inventory.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token+"x", false)
	require.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("exp-1", "exports/inventory.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	_, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "exports/inventory.pdf", path)
}
