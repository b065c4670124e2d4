package chaintest

import (
	"testing"

	"github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/R3E-Network/greeno_layer/internal/chain"
)

// NewKey returns a freshly generated key and its DER string encoding.
func NewKey(t testing.TB) (chain.PrivateKey, string) {
	t.Helper()
	raw, err := hedera.PrivateKeyGenerateEd25519()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := chain.ParsePrivateKey(raw.String())
	if err != nil {
		t.Fatalf("parse generated key: %v", err)
	}
	return key, raw.String()
}
