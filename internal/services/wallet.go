package services

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrMalformedPublicKey     = errors.New("malformed public key")
	ErrInvalidWalletSignature = errors.New("invalid wallet signature")
)

// WalletVerifier checks that a detached ed25519 signature over a challenge
// message was produced by the holder of a wallet's public key. Verification
// is pure: success proves key control only and grants no authorization.
type WalletVerifier struct{}

// NewWalletVerifier creates a new wallet signature verifier
func NewWalletVerifier() *WalletVerifier {
	return &WalletVerifier{}
}

// VerifySignature verifies signature over the UTF-8 bytes of message under
// the base58-encoded publicKey
func (w *WalletVerifier) VerifySignature(publicKey, message string, signature []byte) error {
	pubKey, err := solana.PublicKeyFromBase58(publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPublicKey, err)
	}

	if len(signature) != ed25519.SignatureSize {
		return ErrInvalidWalletSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(pubKey.Bytes()), []byte(message), signature) {
		return ErrInvalidWalletSignature
	}

	return nil
}
