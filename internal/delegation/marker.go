package delegation

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrNotDelegated is returned when an account's code is not a delegation marker.
	ErrNotDelegated = errors.New("account has no delegation designation")
	// ErrDelegationMismatch is returned when the marker points at another address.
	ErrDelegationMismatch = errors.New("account is delegated to a different address")
)

// MarkerLength is the size of the code an EOA carries once delegated.
const MarkerLength = 23

// Marker returns the delegation marker 0xef0100 || target.
func Marker(target common.Address) []byte {
	return types.AddressToDelegation(target)
}

// ParseMarker extracts the target address from a delegation marker.
func ParseMarker(code []byte) (common.Address, bool) {
	return types.ParseDelegation(code)
}

// Designation describes the delegation state of an account.
type Designation struct {
	Account   common.Address
	Delegated bool
	Target    common.Address
	Code      []byte
}

// NewDesignation interprets code read from account.
func NewDesignation(account common.Address, code []byte) *Designation {
	target, ok := ParseMarker(code)
	return &Designation{
		Account:   account,
		Delegated: ok,
		Target:    target,
		Code:      code,
	}
}

// Check returns nil when the designation points at target.
func (d *Designation) Check(target common.Address) error {
	if !d.Delegated {
		return ErrNotDelegated
	}
	if d.Target != target {
		return ErrDelegationMismatch
	}
	return nil
}
