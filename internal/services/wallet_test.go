package services

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignatureAcceptsValidSignature(t *testing.T) {
	wallet := solana.NewWallet()
	message := "Sign in to example-app at 2026-09-01T10:00:00Z"

	sig, err := wallet.PrivateKey.Sign([]byte(message))
	require.NoError(t, err)

	verifier := NewWalletVerifier()
	err = verifier.VerifySignature(wallet.PublicKey().String(), message, sig[:])
	assert.NoError(t, err)
}

func TestVerifySignatureRejectsFlippedSignatureBit(t *testing.T) {
	wallet := solana.NewWallet()
	message := "challenge"

	sig, err := wallet.PrivateKey.Sign([]byte(message))
	require.NoError(t, err)

	tampered := make([]byte, len(sig))
	copy(tampered, sig[:])
	tampered[0] ^= 0x01

	verifier := NewWalletVerifier()
	err = verifier.VerifySignature(wallet.PublicKey().String(), message, tampered)
	assert.ErrorIs(t, err, ErrInvalidWalletSignature)
}

func TestVerifySignatureRejectsModifiedMessage(t *testing.T) {
	wallet := solana.NewWallet()

	sig, err := wallet.PrivateKey.Sign([]byte("original message"))
	require.NoError(t, err)

	verifier := NewWalletVerifier()
	err = verifier.VerifySignature(wallet.PublicKey().String(), "original messagf", sig[:])
	assert.ErrorIs(t, err, ErrInvalidWalletSignature)
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	signer := solana.NewWallet()
	other := solana.NewWallet()
	message := "challenge"

	sig, err := signer.PrivateKey.Sign([]byte(message))
	require.NoError(t, err)

	verifier := NewWalletVerifier()
	err = verifier.VerifySignature(other.PublicKey().String(), message, sig[:])
	assert.ErrorIs(t, err, ErrInvalidWalletSignature)
}

func TestVerifySignatureRejectsMalformedPublicKey(t *testing.T) {
	verifier := NewWalletVerifier()

	err := verifier.VerifySignature("not-a-base58-key!!!", "message", make([]byte, 64))
	assert.ErrorIs(t, err, ErrMalformedPublicKey)
}

func TestVerifySignatureRejectsTruncatedSignature(t *testing.T) {
	wallet := solana.NewWallet()

	verifier := NewWalletVerifier()
	err := verifier.VerifySignature(wallet.PublicKey().String(), "message", []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidWalletSignature)
}
