// Package sign wraps the narinfo signature primitives (ed25519 sign/verify
// over a raw fingerprint) for a different purpose than their origin: here
// they authenticate dist tarballs rather than Nix store paths. The key
// format, loading, and parsing functions are reused unchanged.
package sign

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/nix-community/go-nix/pkg/narinfo/signature"
)

// SecretKey signs dist archives. Wraps signature.SecretKey so callers never
// import the narinfo package directly.
type SecretKey struct {
	key *signature.SecretKey
}

// LoadSecretKeyFile reads a "name:base64key" secret key file, the same
// format the teacher's signing key uses.
func LoadSecretKeyFile(path string) (SecretKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SecretKey{}, fmt.Errorf("sign: reading key file %q: %w", path, err)
	}
	key, err := signature.LoadSecretKey(string(data))
	if err != nil {
		return SecretKey{}, fmt.Errorf("sign: parsing key file %q: %w", path, err)
	}
	return SecretKey{key: &key}, nil
}

// PublicKey returns the public half of k, in the "name:base64key" format
// suitable for distribution to installers.
func (k SecretKey) PublicKey() string {
	return k.key.ToPublicKey().String()
}

// SignFile computes a sha256 fingerprint of the file at path and signs it,
// returning the signature in its canonical "name:base64sig" string form.
func (k SecretKey) SignFile(path string) (string, error) {
	fingerprint, err := fingerprintFile(path)
	if err != nil {
		return "", err
	}
	sig, err := k.key.Sign(nil, fingerprint)
	if err != nil {
		return "", fmt.Errorf("sign: signing %q: %w", path, err)
	}
	return sig.String(), nil
}

// VerifyFile checks that sig (in "name:base64sig" form) is a valid
// signature over the file at path under publicKey (in "name:base64key"
// form).
func VerifyFile(publicKeyStr, sig, path string) (bool, error) {
	publicKey, err := signature.ParsePublicKey(publicKeyStr)
	if err != nil {
		return false, fmt.Errorf("sign: parsing public key: %w", err)
	}
	parsed, err := signature.ParseSignature(sig)
	if err != nil {
		return false, fmt.Errorf("sign: parsing signature: %w", err)
	}
	fingerprint, err := fingerprintFile(path)
	if err != nil {
		return false, err
	}
	return publicKey.Verify(fingerprint, parsed), nil
}

func fingerprintFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sign: reading %q: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}
