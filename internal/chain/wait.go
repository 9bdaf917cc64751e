package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/logger"
)

// ErrTxFailed is returned when a transaction is included with status 0.
var ErrTxFailed = errors.New("transaction failed")

var errPending = errors.New("transaction pending")

// WaitMined polls for the receipt of hash every interval until it exists or
// ctx is done. Lookup errors are treated as transient: nodes report
// "transaction indexing is in progress" until the receipt is indexed, so only
// ctx ends the wait. A reverted transaction returns its receipt together with
// ErrTxFailed.
func WaitMined(ctx context.Context, b ReceiptReader, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	poll := func() (*types.Receipt, error) {
		receipt, err := b.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, errPending
		}
		if err != nil {
			return nil, err
		}
		return receipt, nil
	}

	notify := func(err error, next time.Duration) {
		if errors.Is(err, errPending) {
			logger.Debug("Waiting for transaction", zap.String("hash", hash.Hex()), zap.Duration("next", next))
			return
		}
		logger.Warn("Receipt lookup failed, retrying",
			zap.String("hash", hash.Hex()),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}

	receipt, err := backoff.RetryNotifyWithData(poll, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s in block %s", ErrTxFailed, hash.Hex(), receipt.BlockNumber)
	}

	logger.Info("Transaction included",
		zap.String("hash", hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed),
	)
	return receipt, nil
}
