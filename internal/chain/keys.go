package chain

import (
	"errors"

	"github.com/hashgraph/hedera-sdk-go/v2"
)

// ErrEmptyKey is returned for an unset PrivateKey.
var ErrEmptyKey = errors.New("private key is empty")

// PrivateKey is a parsed signing credential.
type PrivateKey struct {
	key   hedera.PrivateKey
	valid bool
}

// ParsePrivateKey accepts DER or raw hex encoded ED25519 and ECDSA keys.
func ParsePrivateKey(s string) (PrivateKey, error) {
	if s == "" {
		return PrivateKey{}, ErrEmptyKey
	}
	key, err := hedera.PrivateKeyFromString(s)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: key, valid: true}, nil
}

// GeneratePrivateKey creates a fresh ED25519 key.
func GeneratePrivateKey() (PrivateKey, error) {
	key, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: key, valid: true}, nil
}

// IsZero reports whether the key was never set.
func (k PrivateKey) IsZero() bool { return !k.valid }

// PublicKey returns the DER encoded public key, or "" for a zero key.
func (k PrivateKey) PublicKey() string {
	if !k.valid {
		return ""
	}
	return k.key.PublicKey().String()
}

// String never returns key material.
func (k PrivateKey) String() string {
	if !k.valid {
		return "PrivateKey(empty)"
	}
	return "PrivateKey(" + k.PublicKey() + ")"
}

func (k PrivateKey) sdkKey() (hedera.PrivateKey, error) {
	if !k.valid {
		return hedera.PrivateKey{}, ErrEmptyKey
	}
	return k.key, nil
}
