package chain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsValidEntityID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.0.5611505", true},
		{"1.2.3", true},
		{"0.0", false},
		{"0.0.x", false},
		{"0.0.-1", false},
		{" 0.0.1", false},
		{"0.0.1.2", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidEntityID(tt.in); got != tt.want {
			t.Errorf("IsValidEntityID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsStatus(t *testing.T) {
	se := &StatusError{Op: "associate", Status: StatusTokenAlreadyAssociated}
	wrapped := fmt.Errorf("outer: %w", se)

	if !IsStatus(wrapped, StatusTokenAlreadyAssociated) {
		t.Error("expected wrapped StatusError to match")
	}
	if IsStatus(wrapped, StatusSuccess) {
		t.Error("unexpected match on other status")
	}
	if !IsStatus(errors.New("receipt for transaction failed with status TOKEN_ALREADY_ASSOCIATED_TO_ACCOUNT"), StatusTokenAlreadyAssociated) {
		t.Error("expected message fallback to match")
	}
	if IsStatus(nil, StatusSuccess) {
		t.Error("nil error should not match")
	}
	if got := StatusOf(wrapped); got != StatusTokenAlreadyAssociated {
		t.Errorf("StatusOf() = %q", got)
	}
}

func TestTokenTransfer_Sum(t *testing.T) {
	transfer := TokenTransfer{Legs: []TransferLeg{
		{Account: "0.0.1", Amount: -300},
		{Account: "0.0.2", Amount: 100},
		{Account: "0.0.3", Amount: 200},
	}}
	if got := transfer.Sum(); got != 0 {
		t.Errorf("Sum() = %d, want 0", got)
	}
}

func TestContractParams_Errors(t *testing.T) {
	p := NewContractParams().AddAddress("0x1234").AddUint256(5)
	if p.Err() == nil {
		t.Fatal("expected short address error")
	}
	if len(p.Args()) != 0 {
		t.Errorf("args after error = %d, want 0", len(p.Args()))
	}

	p = NewContractParams().AddUint256Array([]int64{1, -2})
	if p.Err() == nil {
		t.Fatal("expected negative uint error")
	}
}

func TestContractParams_Normalizes(t *testing.T) {
	p := NewContractParams().
		AddAddress("0x0000000000000000000000000000000000559FF1").
		AddAddressArray([]string{"0000000000000000000000000000000000000003"}).
		AddUint256Array([]int64{1234, 5})
	if err := p.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	args := p.Args()
	if len(args) != 3 {
		t.Fatalf("args = %d, want 3", len(args))
	}
	if args[0].Addresses[0] != "0000000000000000000000000000000000559ff1" {
		t.Errorf("address = %s", args[0].Addresses[0])
	}
	if args[2].Kind != ArgUint256Array || args[2].Uints[0] != 1234 {
		t.Errorf("uint array = %+v", args[2])
	}
}

func TestContractParams_ToSDK(t *testing.T) {
	p := NewContractParams().
		AddAddress("0x0000000000000000000000000000000000559FF1").
		AddAddressArray([]string{"0000000000000000000000000000000000000003", "0000000000000000000000000000000000000004"}).
		AddUint256(7).
		AddUint256Array([]int64{1234, 5})
	out, err := p.toSDK()
	if err != nil {
		t.Fatalf("toSDK() error = %v", err)
	}
	if out == nil {
		t.Fatal("toSDK() returned nil parameters")
	}

	var nilParams *ContractParams
	if out, err := nilParams.toSDK(); err != nil || out == nil {
		t.Errorf("nil params toSDK() = %v, %v", out, err)
	}

	bad := NewContractParams().AddAddress("0x12")
	if _, err := bad.toSDK(); err == nil {
		t.Error("expected builder error to surface")
	}
}

func TestContractResult_Decode(t *testing.T) {
	addr, err := AddressWord("0000000000000000000000000000000000000457")
	if err != nil {
		t.Fatal(err)
	}
	raw := append(addr, Uint256Word(1700000000)...)
	result := &ContractResult{Raw: raw}

	gotAddr, err := result.Address(0)
	if err != nil || gotAddr != "0000000000000000000000000000000000000457" {
		t.Errorf("Address(0) = %q, %v", gotAddr, err)
	}
	gotTS, err := result.Uint64(1)
	if err != nil || gotTS != 1700000000 {
		t.Errorf("Uint64(1) = %d, %v", gotTS, err)
	}
	if _, err := result.Uint64(2); err == nil {
		t.Error("expected out of range error")
	}

	overflow := make([]byte, wordSize)
	overflow[0] = 1
	if _, err := (&ContractResult{Raw: overflow}).Uint64(0); err == nil {
		t.Error("expected overflow error")
	}
}

func TestSolidityAddress_RoundTrip(t *testing.T) {
	addr, err := SolidityAddress("0.0.5611505")
	if err != nil {
		t.Fatalf("SolidityAddress() error = %v", err)
	}
	if !strings.HasSuffix(addr, "559ff1") || len(addr) != 40 {
		t.Errorf("SolidityAddress() = %s", addr)
	}

	back, err := AccountIDFromSolidityAddress("0x" + addr)
	if err != nil {
		t.Fatalf("AccountIDFromSolidityAddress() error = %v", err)
	}
	if back != "0.0.5611505" {
		t.Errorf("round trip = %s, want 0.0.5611505", back)
	}
}

func TestEntityNum(t *testing.T) {
	n, err := EntityNum("0.0.5611505")
	if err != nil || n != 5611505 {
		t.Errorf("EntityNum() = %d, %v", n, err)
	}
	if _, err := EntityNum("token"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestPrivateKey(t *testing.T) {
	var zero PrivateKey
	if !zero.IsZero() {
		t.Error("zero key should report IsZero")
	}
	if _, err := ParsePrivateKey(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("ParsePrivateKey(\"\") error = %v", err)
	}
	if _, err := ParsePrivateKey("not-a-key"); err == nil {
		t.Error("expected parse error")
	}

	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	parsed, err := ParsePrivateKey(key.key.String())
	if err != nil {
		t.Fatalf("ParsePrivateKey() error = %v", err)
	}
	if parsed.PublicKey() != key.PublicKey() {
		t.Error("parsed key has a different public key")
	}
	if strings.Contains(key.String(), key.key.String()) {
		t.Error("String() leaked private key material")
	}
}
