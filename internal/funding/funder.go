package funding

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/logger"
)

// Funder sends plain value transfers from one account as EIP-155 legacy
// transactions.
type Funder struct {
	transactor   *chain.Transactor
	gasPrice     *big.Int
	pollInterval time.Duration
}

// NewFunder creates a Funder. A nil gasPrice asks the node for a suggestion
// on every transfer.
func NewFunder(transactor *chain.Transactor, gasPrice *big.Int, pollInterval time.Duration) *Funder {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Funder{
		transactor:   transactor,
		gasPrice:     gasPrice,
		pollInterval: pollInterval,
	}
}

// Fund submits a transfer of amount wei to the given address.
func (f *Funder) Fund(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("fund amount must be positive")
	}

	nonce, err := f.transactor.Nonce(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice := f.gasPrice
	if gasPrice == nil {
		gasPrice, err = f.transactor.Backend().SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	tx, err := f.transactor.SignAndSend(ctx, &types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      params.TxGas,
		To:       &to,
		Value:    amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fund %s: %w", to.Hex(), err)
	}

	if raw, err := tx.MarshalBinary(); err == nil {
		logger.Debug("Raw funding transaction", zap.String("raw", hexutil.Encode(raw)))
	}
	logger.Info("Funding submitted",
		zap.String("from", f.transactor.Address().Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount_wei", amount.String()),
		zap.String("hash", tx.Hash().Hex()),
	)
	return tx, nil
}

// FundAndWait transfers amount to the address and waits for inclusion.
func (f *Funder) FundAndWait(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	tx, err := f.Fund(ctx, to, amount)
	if err != nil {
		return nil, err
	}
	return chain.WaitMined(ctx, f.transactor.Backend(), tx.Hash(), f.pollInterval)
}
