package counter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/logger"
)

// ErrNoCode is returned when a deployment left no code at the contract address.
var ErrNoCode = errors.New("no contract code at address")

// Caller executes read-only message calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Deploy submits bytecode as a contract creation from the transactor's
// account. The returned address is derived from the sender and nonce and only
// holds code once the transaction is included.
func Deploy(ctx context.Context, tr *chain.Transactor, bytecode []byte) (common.Address, *types.Transaction, error) {
	if len(bytecode) == 0 {
		return common.Address{}, nil, fmt.Errorf("empty deployment bytecode")
	}

	tx, err := tr.Send(ctx, nil, nil, bytecode)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to deploy Counter: %w", err)
	}

	address := crypto.CreateAddress(tr.Address(), tx.Nonce())
	logger.Info("Counter deployment submitted",
		zap.String("address", address.Hex()),
		zap.String("hash", tx.Hash().Hex()),
	)
	return address, tx, nil
}

// DeployAndWait deploys bytecode and waits until code exists at the address.
func DeployAndWait(ctx context.Context, tr *chain.Transactor, bytecode []byte, pollInterval time.Duration) (common.Address, error) {
	address, tx, err := Deploy(ctx, tr, bytecode)
	if err != nil {
		return common.Address{}, err
	}

	receipt, err := chain.WaitMined(ctx, tr.Backend(), tx.Hash(), pollInterval)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy Counter: %w", err)
	}
	if receipt.ContractAddress != (common.Address{}) {
		address = receipt.ContractAddress
	}

	code, err := tr.Backend().CodeAt(ctx, address, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get code for %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return common.Address{}, fmt.Errorf("%s: %w", address.Hex(), ErrNoCode)
	}

	logger.Info("Counter deployed",
		zap.String("address", address.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Int("code_size", len(code)),
	)
	return address, nil
}

// Counter binds the Counter interface to an address. The address may be the
// contract itself or an EOA delegated to it, in which case calls run the
// contract code against the EOA's storage and balance.
type Counter struct {
	address common.Address
	caller  Caller
}

// New creates a binding at address that reads state through caller.
func New(address common.Address, caller Caller) *Counter {
	return &Counter{address: address, caller: caller}
}

// Address returns the bound address.
func (c *Counter) Address() common.Address { return c.address }

// Number returns the stored number.
func (c *Counter) Number(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "number")
	if err != nil {
		return nil, err
	}
	number, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected number() result type %T", out[0])
	}
	return number, nil
}

// SayHello returns the greeting.
func (c *Counter) SayHello(ctx context.Context) (string, error) {
	out, err := c.call(ctx, "sayHello")
	if err != nil {
		return "", err
	}
	greeting, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected sayHello() result type %T", out[0])
	}
	return greeting, nil
}

// SetNumber submits setNumber(x) from the transactor's account.
func (c *Counter) SetNumber(ctx context.Context, tr *chain.Transactor, x *big.Int) (*types.Transaction, error) {
	if x == nil || x.Sign() < 0 {
		return nil, fmt.Errorf("number must be a non-negative uint256")
	}
	return c.transact(ctx, tr, "setNumber", x)
}

// Increment submits increment() from the transactor's account.
func (c *Counter) Increment(ctx context.Context, tr *chain.Transactor) (*types.Transaction, error) {
	return c.transact(ctx, tr, "increment")
}

// TransferToSender submits transferToSender(amount). The bound address pays
// amount wei to the transactor's account.
func (c *Counter) TransferToSender(ctx context.Context, tr *chain.Transactor, amount *big.Int) (*types.Transaction, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must be a non-negative uint256")
	}
	return c.transact(ctx, tr, "transferToSender", amount)
}

func (c *Counter) call(ctx context.Context, method string) ([]interface{}, error) {
	input, err := parsedABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	output, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, c.address.Hex(), err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("%s: %w", c.address.Hex(), ErrNoCode)
	}

	out, err := parsedABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

func (c *Counter) transact(ctx context.Context, tr *chain.Transactor, method string, args ...interface{}) (*types.Transaction, error) {
	input, err := parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	tx, err := tr.Send(ctx, &c.address, nil, input)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s to %s: %w", method, c.address.Hex(), err)
	}

	logger.Debug("Counter transaction submitted",
		zap.String("method", method),
		zap.String("to", c.address.Hex()),
		zap.String("hash", tx.Hash().Hex()),
	)
	return tx, nil
}
