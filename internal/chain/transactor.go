package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cyphera/eip7702-demo/internal/logger"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

// Transactor signs and submits transactions on behalf of one account.
type Transactor struct {
	backend Backend
	account *wallet.Account
	chainID *big.Int
	signer  types.Signer
}

// NewTransactor binds account to backend, reading the chain ID once.
func NewTransactor(ctx context.Context, backend Backend, account *wallet.Account) (*Transactor, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return &Transactor{
		backend: backend,
		account: account,
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

// Address returns the sending account.
func (t *Transactor) Address() common.Address { return t.account.Address }

// ChainID returns the chain ID the transactor signs for.
func (t *Transactor) ChainID() *big.Int { return new(big.Int).Set(t.chainID) }

// Backend returns the RPC backend used for submission.
func (t *Transactor) Backend() Backend { return t.backend }

// Fees returns an EIP-1559 tip and fee cap. The cap leaves room for the base
// fee to double before inclusion.
func (t *Transactor) Fees(ctx context.Context) (tip *big.Int, feeCap *big.Int, err error) {
	tip, err = t.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to suggest gas tip cap: %w", err)
	}
	head, err := t.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, nil, fmt.Errorf("node does not report a base fee")
	}
	feeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return tip, feeCap, nil
}

// Nonce returns the next pending nonce of the sending account.
func (t *Transactor) Nonce(ctx context.Context) (uint64, error) {
	nonce, err := t.backend.PendingNonceAt(ctx, t.account.Address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce for %s: %w", t.account.Address.Hex(), err)
	}
	return nonce, nil
}

// Send builds, signs and submits a dynamic fee transaction. A nil to deploys
// data as contract init code. Gas is estimated by the node.
func (t *Transactor) Send(ctx context.Context, to *common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := t.Nonce(ctx)
	if err != nil {
		return nil, err
	}
	tip, feeCap, err := t.Fees(ctx)
	if err != nil {
		return nil, err
	}

	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:      t.account.Address,
		To:        to,
		GasFeeCap: feeCap,
		GasTipCap: tip,
		Value:     value,
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	return t.SignAndSend(ctx, &types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})
}

// SignAndSend signs txdata with the account key and submits it.
func (t *Transactor) SignAndSend(ctx context.Context, txdata types.TxData) (*types.Transaction, error) {
	tx, err := types.SignNewTx(t.account.Key, t.signer, txdata)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if logger.Log.Core().Enabled(zapcore.DebugLevel) {
		logger.Debug("Signed transaction", zap.String("tx", spew.Sdump(tx)))
	}

	if err := t.backend.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	logger.Info("Transaction submitted",
		zap.String("hash", tx.Hash().Hex()),
		zap.String("from", t.account.Address.Hex()),
		zap.Uint8("type", tx.Type()),
		zap.Uint64("nonce", tx.Nonce()),
	)
	return tx, nil
}
