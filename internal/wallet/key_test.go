package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddrHex = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestParsePrivateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain hex", input: testKeyHex},
		{name: "0x prefix", input: "0x" + testKeyHex},
		{name: "surrounding whitespace", input: "  0x" + testKeyHex + "\n"},
		{name: "empty", input: "", wantErr: true},
		{name: "only prefix", input: "0x", wantErr: true},
		{name: "not hex", input: "0xzz", wantErr: true},
		{name: "too short", input: "0x1234", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParsePrivateKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPrivateKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, common.HexToAddress(testAddrHex), NewAccount(key).Address)
		})
	}
}

func TestAccountFromHex(t *testing.T) {
	account, err := AccountFromHex(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddrHex), account.Address)
	assert.NotNil(t, account.Key)

	_, err = AccountFromHex("nope")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(testAddrHex)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddrHex), addr)

	lower, err := ParseAddress(" 0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266 ")
	require.NoError(t, err)
	assert.Equal(t, addr, lower)

	for _, bad := range []string{"", "f39Fd6e51aad88F6F4ce6aB8827279cffFb92266", "0x1234", "0xzz9Fd6e51aad88F6F4ce6aB8827279cffFb92266"} {
		_, err := ParseAddress(bad)
		assert.Error(t, err, bad)
	}
}
