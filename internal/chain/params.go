package chain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashgraph/hedera-sdk-go/v2"
)

// =============================================================================
// Contract parameters
// =============================================================================

// ArgKind is the ABI type of a contract argument.
type ArgKind string

const (
	ArgAddress      ArgKind = "address"
	ArgAddressArray ArgKind = "address[]"
	ArgUint256      ArgKind = "uint256"
	ArgUint256Array ArgKind = "uint256[]"
)

// ContractArg is one ABI encoded argument.
type ContractArg struct {
	Kind      ArgKind
	Addresses []string
	Uints     []uint64
}

// ContractParams accumulates function arguments. The first invalid argument
// is kept in Err and later Adds are ignored.
type ContractParams struct {
	args []ContractArg
	err  error
}

// NewContractParams returns an empty argument list.
func NewContractParams() *ContractParams {
	return &ContractParams{}
}

// AddAddress appends a 20 byte address given as hex, with or without 0x.
func (p *ContractParams) AddAddress(addr string) *ContractParams {
	if p.err != nil {
		return p
	}
	norm, err := normalizeAddress(addr)
	if err != nil {
		p.err = err
		return p
	}
	p.args = append(p.args, ContractArg{Kind: ArgAddress, Addresses: []string{norm}})
	return p
}

// AddAddressArray appends an address[] argument.
func (p *ContractParams) AddAddressArray(addrs []string) *ContractParams {
	if p.err != nil {
		return p
	}
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		norm, err := normalizeAddress(addr)
		if err != nil {
			p.err = err
			return p
		}
		out = append(out, norm)
	}
	p.args = append(p.args, ContractArg{Kind: ArgAddressArray, Addresses: out})
	return p
}

// AddUint256 appends a uint256 argument.
func (p *ContractParams) AddUint256(v uint64) *ContractParams {
	if p.err == nil {
		p.args = append(p.args, ContractArg{Kind: ArgUint256, Uints: []uint64{v}})
	}
	return p
}

// AddUint256Array appends a uint256[] argument. Negative values are rejected.
func (p *ContractParams) AddUint256Array(values []int64) *ContractParams {
	if p.err != nil {
		return p
	}
	out := make([]uint64, 0, len(values))
	for _, v := range values {
		if v < 0 {
			p.err = fmt.Errorf("uint256 argument is negative: %d", v)
			return p
		}
		out = append(out, uint64(v))
	}
	p.args = append(p.args, ContractArg{Kind: ArgUint256Array, Uints: out})
	return p
}

// Args returns the accumulated arguments.
func (p *ContractParams) Args() []ContractArg {
	if p == nil {
		return nil
	}
	return p.args
}

// Err returns the first argument error.
func (p *ContractParams) Err() error {
	if p == nil {
		return nil
	}
	return p.err
}

func (p *ContractParams) toSDK() (*hedera.ContractFunctionParameters, error) {
	out := hedera.NewContractFunctionParameters()
	if p == nil {
		return out, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	var err error
	for _, arg := range p.args {
		switch arg.Kind {
		case ArgAddress:
			out, err = out.AddAddress(arg.Addresses[0])
		case ArgAddressArray:
			out, err = out.AddAddressArray(arg.Addresses)
		case ArgUint256:
			out = out.AddUint256(Uint256Word(arg.Uints[0]))
		case ArgUint256Array:
			words := make([][32]byte, len(arg.Uints))
			for i, v := range arg.Uints {
				copy(words[i][:], Uint256Word(v))
			}
			out = out.AddUint256Array(words)
		default:
			err = fmt.Errorf("unsupported argument kind %s", arg.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeAddress(addr string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(trimmed) != 40 {
		return "", fmt.Errorf("address %q must be 20 bytes", addr)
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return "", fmt.Errorf("address %q is not hex: %w", addr, err)
	}
	return strings.ToLower(trimmed), nil
}

// =============================================================================
// Contract results
// =============================================================================

const wordSize = 32

// ContractResult holds the ABI encoded return data of a contract call.
type ContractResult struct {
	Raw     []byte
	GasUsed uint64
}

// Word returns the i-th 32 byte return slot.
func (r *ContractResult) Word(i int) ([]byte, error) {
	start := i * wordSize
	if i < 0 || start+wordSize > len(r.Raw) {
		return nil, fmt.Errorf("result has no word %d (length %d)", i, len(r.Raw))
	}
	return r.Raw[start : start+wordSize], nil
}

// Uint64 decodes the i-th slot as an unsigned integer.
func (r *ContractResult) Uint64(i int) (uint64, error) {
	word, err := r.Word(i)
	if err != nil {
		return 0, err
	}
	for _, b := range word[:wordSize-8] {
		if b != 0 {
			return 0, fmt.Errorf("word %d overflows uint64", i)
		}
	}
	return binary.BigEndian.Uint64(word[wordSize-8:]), nil
}

// Address decodes the i-th slot as a 40 character hex address.
func (r *ContractResult) Address(i int) (string, error) {
	word, err := r.Word(i)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(word[wordSize-20:]), nil
}

// Uint256Word left pads v into a 32 byte big endian slot.
func Uint256Word(v uint64) []byte {
	word := make([]byte, wordSize)
	binary.BigEndian.PutUint64(word[wordSize-8:], v)
	return word
}

// AddressWord left pads a hex address into a 32 byte slot.
func AddressWord(addr string) ([]byte, error) {
	norm, err := normalizeAddress(addr)
	if err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString(norm)
	word := make([]byte, wordSize)
	copy(word[wordSize-20:], raw)
	return word, nil
}

// =============================================================================
// Address conversion
// =============================================================================

// SolidityAddress returns the long-zero EVM address of an account.
func SolidityAddress(id AccountID) (string, error) {
	acc, err := hedera.AccountIDFromString(string(id))
	if err != nil {
		return "", fmt.Errorf("parse account %s: %w", id, err)
	}
	return acc.ToSolidityAddress(), nil
}

// AccountIDFromSolidityAddress reverses SolidityAddress.
func AccountIDFromSolidityAddress(addr string) (AccountID, error) {
	acc, err := hedera.AccountIDFromSolidityAddress(strings.TrimPrefix(addr, "0x"))
	if err != nil {
		return "", fmt.Errorf("parse solidity address %s: %w", addr, err)
	}
	return AccountID(acc.String()), nil
}

// EntityNum returns the num segment of a shard.realm.num identifier.
func EntityNum(id string) (uint64, error) {
	if !IsValidEntityID(id) {
		return 0, fmt.Errorf("invalid entity id %q", id)
	}
	return strconv.ParseUint(id[strings.LastIndex(id, ".")+1:], 10, 64)
}
