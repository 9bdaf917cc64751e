package delegation

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/logger"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

const (
	defaultGasLimit     = 100_000
	defaultPollInterval = time.Second
)

// Applier sets delegation designations on EOAs. The sponsor pays for the
// type 0x04 transaction; each EOA only signs its authorization tuple.
type Applier struct {
	sponsor      *chain.Transactor
	gasLimit     uint64
	pollInterval time.Duration
}

// Option configures an Applier.
type Option func(*Applier)

// WithGasLimit sets the gas limit of designation transactions.
func WithGasLimit(gas uint64) Option {
	return func(a *Applier) {
		if gas > 0 {
			a.gasLimit = gas
		}
	}
}

// WithPollInterval sets how often receipts are polled.
func WithPollInterval(d time.Duration) Option {
	return func(a *Applier) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// NewApplier creates an Applier that submits through sponsor.
func NewApplier(sponsor *chain.Transactor, opts ...Option) *Applier {
	a := &Applier{
		sponsor:      sponsor,
		gasLimit:     defaultGasLimit,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize signs the tuple (chain_id, target, nonce) with the EOA key. The
// nonce is the EOA's pending nonce, plus one when the EOA also sends the
// transaction because its nonce is bumped before authorizations are applied.
func (a *Applier) Authorize(ctx context.Context, eoa *wallet.Account, target common.Address) (types.SetCodeAuthorization, error) {
	nonce, err := a.sponsor.Backend().PendingNonceAt(ctx, eoa.Address)
	if err != nil {
		return types.SetCodeAuthorization{}, fmt.Errorf("failed to get nonce for %s: %w", eoa.Address.Hex(), err)
	}
	if eoa.Address == a.sponsor.Address() {
		nonce++
	}

	chainID, overflow := uint256.FromBig(a.sponsor.ChainID())
	if overflow {
		return types.SetCodeAuthorization{}, fmt.Errorf("chain ID %s does not fit in 256 bits", a.sponsor.ChainID())
	}

	auth, err := types.SignSetCode(eoa.Key, types.SetCodeAuthorization{
		ChainID: *chainID,
		Address: target,
		Nonce:   nonce,
	})
	if err != nil {
		return types.SetCodeAuthorization{}, fmt.Errorf("failed to sign authorization: %w", err)
	}

	authority, err := auth.Authority()
	if err != nil {
		return types.SetCodeAuthorization{}, fmt.Errorf("malformed authorization signature: %w", err)
	}
	if authority != eoa.Address {
		return types.SetCodeAuthorization{}, fmt.Errorf("authorization recovers to %s, expected %s", authority.Hex(), eoa.Address.Hex())
	}

	logger.Debug("Signed delegation authorization",
		zap.String("eoa", eoa.Address.Hex()),
		zap.String("target", target.Hex()),
		zap.Uint64("nonce", nonce),
	)
	return auth, nil
}

// Apply builds, signs and submits the designation transaction. It returns
// as soon as the node accepts the transaction.
func (a *Applier) Apply(ctx context.Context, eoa *wallet.Account, target common.Address) (*types.Transaction, error) {
	auth, err := a.Authorize(ctx, eoa, target)
	if err != nil {
		return nil, err
	}

	nonce, err := a.sponsor.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	tip, feeCap, err := a.sponsor.Fees(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := a.sponsor.SignAndSend(ctx, &types.SetCodeTx{
		ChainID:   uint256.MustFromBig(a.sponsor.ChainID()),
		Nonce:     nonce,
		GasTipCap: uint256.MustFromBig(tip),
		GasFeeCap: uint256.MustFromBig(feeCap),
		Gas:       a.gasLimit,
		To:        eoa.Address,
		Value:     new(uint256.Int),
		AuthList:  []types.SetCodeAuthorization{auth},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit delegation for %s: %w", eoa.Address.Hex(), err)
	}

	logger.Info("Delegation submitted",
		zap.String("eoa", eoa.Address.Hex()),
		zap.String("target", target.Hex()),
		zap.String("sponsor", a.sponsor.Address().Hex()),
		zap.String("hash", tx.Hash().Hex()),
	)
	return tx, nil
}

// Wait blocks until tx is included.
func (a *Applier) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return chain.WaitMined(ctx, a.sponsor.Backend(), tx.Hash(), a.pollInterval)
}

// Status reads the current delegation state of account.
func (a *Applier) Status(ctx context.Context, account common.Address) (*Designation, error) {
	return ReadDesignation(ctx, a.sponsor.Backend(), account)
}

// Verify checks that account is delegated to target.
func (a *Applier) Verify(ctx context.Context, account, target common.Address) (*Designation, error) {
	d, err := a.Status(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := d.Check(target); err != nil {
		return d, fmt.Errorf("%s: %w", account.Hex(), err)
	}
	return d, nil
}

// Designate submits the designation, waits for inclusion and verifies the
// resulting code. An authorization the network skipped (for example a stale
// nonce) still yields a successful receipt, so the code check is what
// surfaces it.
func (a *Applier) Designate(ctx context.Context, eoa *wallet.Account, target common.Address) (*Designation, error) {
	tx, err := a.Apply(ctx, eoa, target)
	if err != nil {
		return nil, err
	}
	if _, err := a.Wait(ctx, tx); err != nil {
		return nil, err
	}

	if target == (common.Address{}) {
		d, err := a.Status(ctx, eoa.Address)
		if err != nil {
			return nil, err
		}
		if d.Delegated || len(d.Code) != 0 {
			return d, fmt.Errorf("delegation of %s was not cleared", eoa.Address.Hex())
		}
		return d, nil
	}
	return a.Verify(ctx, eoa.Address, target)
}

// Revoke clears the EOA's delegation by designating the zero address.
func (a *Applier) Revoke(ctx context.Context, eoa *wallet.Account) (*Designation, error) {
	return a.Designate(ctx, eoa, common.Address{})
}

// CodeReader is the part of Backend needed to read designations.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// ReadDesignation reads the latest code of account and interprets it.
func ReadDesignation(ctx context.Context, b CodeReader, account common.Address) (*Designation, error) {
	code, err := b.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code for %s: %w", account.Hex(), err)
	}
	return NewDesignation(account, code), nil
}
