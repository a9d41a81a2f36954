package main

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// loadIdentity reads a PEM-encoded RSA or ECDSA private key from path and
// returns it alongside the ssh.PublicKey form CreatePublisherToken expects
// to fingerprint, for authenticating a "publish"/"register" request against
// the registry's trust configuration (install/trust.Config).
func loadIdentity(path string) (crypto.Signer, ssh.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("pm: reading identity file %q: %w", path, err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, nil, fmt.Errorf("pm: %q is not PEM-encoded", path)
	}

	var signer crypto.Signer
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("pm: parsing RSA key in %q: %w", path, err)
		}
		signer = key
	default:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("pm: parsing private key in %q: %w", path, err)
		}
		s, ok := key.(crypto.Signer)
		if !ok {
			return nil, nil, fmt.Errorf("pm: %q does not hold a signing key", path)
		}
		signer = s
	}

	pub, err := ssh.NewPublicKey(signer.Public())
	if err != nil {
		return nil, nil, fmt.Errorf("pm: converting public key from %q: %w", path, err)
	}
	return signer, pub, nil
}
