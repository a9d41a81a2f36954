package registryclient

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/ssh"

	"github.com/a-h/pkgrun/install/trust"
)

// PublisherClaims identifies the SSH key that signed a publish/register
// request, so the registry can check it against its trust configuration.
type PublisherClaims struct {
	KeyFingerprint string `json:"key_fingerprint"`
	jwt.RegisteredClaims
}

// CreatePublisherToken signs a short-lived bearer token with privateKey,
// identifying publicKey's fingerprint as the claimed publisher. Used by
// "publish"/"register" to authenticate against the registry's HTTP API.
func CreatePublisherToken(privateKey crypto.Signer, publicKey ssh.PublicKey) (string, error) {
	claims := PublisherClaims{
		KeyFingerprint: ssh.FingerprintSHA256(publicKey),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	var signingMethod jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		signingMethod = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		signingMethod = jwt.SigningMethodES256
	default:
		return "", fmt.Errorf("registryclient: unsupported private key type")
	}

	token := jwt.NewWithClaims(signingMethod, claims)

	signingString, err := token.SigningString()
	if err != nil {
		return "", fmt.Errorf("registryclient: failed to get signing string: %w", err)
	}

	hash := sha256.Sum256([]byte(signingString))
	signature, err := privateKey.Sign(nil, hash[:], crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("registryclient: failed to sign token: %w", err)
	}

	encodedSignature := base64.RawURLEncoding.EncodeToString(signature)
	return strings.Join([]string{signingString, encodedSignature}, "."), nil
}

// VerifyPublisherToken checks a bearer token against trustCfg, returning
// the fingerprint of the key that signed it. A registry server uses this
// to authorize "publish"/"register" requests; kept here alongside
// CreatePublisherToken so client and verification logic share one claims
// shape.
func VerifyPublisherToken(tokenString string, trustCfg *trust.Config) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PublisherClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		claims, ok := token.Claims.(*PublisherClaims)
		if !ok {
			return nil, fmt.Errorf("invalid claims type")
		}

		for _, authKey := range trustCfg.Keys {
			if ssh.FingerprintSHA256(authKey.PublicKey) == claims.KeyFingerprint {
				return extractCryptoPublicKey(authKey.PublicKey)
			}
		}
		return nil, fmt.Errorf("key not found in trust configuration")
	})
	if err != nil {
		return "", fmt.Errorf("registryclient: failed to verify token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("registryclient: token is not valid")
	}

	claims, ok := token.Claims.(*PublisherClaims)
	if !ok {
		return "", fmt.Errorf("registryclient: invalid claims type")
	}
	return claims.KeyFingerprint, nil
}

func extractCryptoPublicKey(sshKey ssh.PublicKey) (crypto.PublicKey, error) {
	switch sshKey.Type() {
	case ssh.KeyAlgoRSA:
		key, ok := sshKey.(ssh.CryptoPublicKey)
		if !ok {
			return nil, fmt.Errorf("SSH key does not implement CryptoPublicKey")
		}
		rsaKey, ok := key.CryptoPublicKey().(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("failed to cast to RSA public key")
		}
		return rsaKey, nil
	case ssh.KeyAlgoECDSA256, ssh.KeyAlgoECDSA384, ssh.KeyAlgoECDSA521:
		key, ok := sshKey.(ssh.CryptoPublicKey)
		if !ok {
			return nil, fmt.Errorf("SSH key does not implement CryptoPublicKey")
		}
		ecdsaKey, ok := key.CryptoPublicKey().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("failed to cast to ECDSA public key")
		}
		return ecdsaKey, nil
	default:
		return nil, fmt.Errorf("unsupported SSH key type: %s", sshKey.Type())
	}
}
