package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidPrivateKey is returned when a hex string is not a usable secp256k1 key.
var ErrInvalidPrivateKey = errors.New("invalid private key")

// Account pairs a signing key with the address derived from it.
type Account struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// ParsePrivateKey decodes a hex encoded secp256k1 private key. The 0x prefix
// and surrounding whitespace are optional.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimSpace(hexKey)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPrivateKey)
	}

	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// NewAccount builds an Account from a private key.
func NewAccount(key *ecdsa.PrivateKey) *Account {
	return &Account{
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// AccountFromHex parses hexKey and derives its address.
func AccountFromHex(hexKey string) (*Account, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewAccount(key), nil
}

// ParseAddress validates a 0x prefixed, 20 byte hex address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("invalid address %q: missing 0x prefix", s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
