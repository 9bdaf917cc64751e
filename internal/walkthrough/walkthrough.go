package walkthrough

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/contracts/counter"
	"github.com/cyphera/eip7702-demo/internal/delegation"
	"github.com/cyphera/eip7702-demo/internal/funding"
	"github.com/cyphera/eip7702-demo/internal/logger"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

// ErrUnexpectedNumber is returned when the delegated counter does not hold
// the expected value after the increments.
var ErrUnexpectedNumber = errors.New("unexpected counter value")

// DefaultIncrements is how many times increment() is called through the EOA.
const DefaultIncrements = 3

// Options tunes a walkthrough run.
type Options struct {
	// FundAmount is sent from the deployer to the EOA. Nil or zero skips funding.
	FundAmount *big.Int
	// GasPrice for the legacy funding transfer. Nil asks the node.
	GasPrice *big.Int
	// Bytecode deploys a custom Counter build. Nil uses the built-in runtime.
	Bytecode []byte
	// Counter reuses an existing deployment and skips the deploy step.
	Counter            *common.Address
	Increments         int
	DelegationGasLimit uint64
	PollInterval       time.Duration
}

// Result summarizes a completed run.
type Result struct {
	EOA         common.Address
	Counter     common.Address
	Designation *delegation.Designation
	Start       *big.Int
	Number      *big.Int
}

// Runner executes fund, deploy, designate, verify and increment in order,
// stopping at the first failure.
type Runner struct {
	deployer *chain.Transactor
	eoa      *wallet.Account
	opts     Options
}

// NewRunner creates a Runner. The deployer funds the EOA, deploys the Counter
// and sponsors the delegation.
func NewRunner(deployer *chain.Transactor, eoa *wallet.Account, opts Options) *Runner {
	if opts.Increments <= 0 {
		opts.Increments = DefaultIncrements
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	return &Runner{deployer: deployer, eoa: eoa, opts: opts}
}

// Run executes the walkthrough.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	log := logger.With(zap.String("eoa", r.eoa.Address.Hex()))
	res := &Result{EOA: r.eoa.Address}

	if r.opts.FundAmount != nil && r.opts.FundAmount.Sign() > 0 {
		log.Info("Step 1: funding EOA", zap.String("amount_wei", r.opts.FundAmount.String()))
		funder := funding.NewFunder(r.deployer, r.opts.GasPrice, r.opts.PollInterval)
		if _, err := funder.FundAndWait(ctx, r.eoa.Address, r.opts.FundAmount); err != nil {
			return nil, fmt.Errorf("fund: %w", err)
		}
	} else {
		log.Info("Step 1: funding skipped")
	}

	if r.opts.Counter != nil {
		res.Counter = *r.opts.Counter
		log.Info("Step 2: using existing Counter", zap.String("counter", res.Counter.Hex()))
	} else {
		bytecode := r.opts.Bytecode
		if len(bytecode) == 0 {
			bytecode = counter.Bytecode()
		}
		log.Info("Step 2: deploying Counter", zap.Int("bytecode_size", len(bytecode)))
		address, err := counter.DeployAndWait(ctx, r.deployer, bytecode, r.opts.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("deploy: %w", err)
		}
		res.Counter = address
	}

	log.Info("Step 3: designating EOA", zap.String("target", res.Counter.Hex()))
	applier := delegation.NewApplier(r.deployer,
		delegation.WithGasLimit(r.opts.DelegationGasLimit),
		delegation.WithPollInterval(r.opts.PollInterval),
	)
	d, err := applier.Designate(ctx, r.eoa, res.Counter)
	if err != nil {
		return nil, fmt.Errorf("designate: %w", err)
	}
	res.Designation = d
	log.Info("Step 4: delegation verified", zap.String("code", fmt.Sprintf("%x", d.Code)))

	viaEOA := counter.New(r.eoa.Address, r.deployer.Backend())
	start, err := viaEOA.Number(ctx)
	if err != nil {
		return nil, fmt.Errorf("read number: %w", err)
	}
	res.Start = start

	log.Info("Step 5: incrementing through EOA", zap.Int("times", r.opts.Increments), zap.String("start", start.String()))
	for i := 0; i < r.opts.Increments; i++ {
		tx, err := viaEOA.Increment(ctx, r.deployer)
		if err != nil {
			return nil, fmt.Errorf("increment %d: %w", i+1, err)
		}
		if _, err := chain.WaitMined(ctx, r.deployer.Backend(), tx.Hash(), r.opts.PollInterval); err != nil {
			return nil, fmt.Errorf("increment %d: %w", i+1, err)
		}
	}

	number, err := viaEOA.Number(ctx)
	if err != nil {
		return nil, fmt.Errorf("read number: %w", err)
	}
	res.Number = number

	want := new(big.Int).Add(start, big.NewInt(int64(r.opts.Increments)))
	if number.Cmp(want) != 0 {
		return res, fmt.Errorf("%w: number() = %s, want %s", ErrUnexpectedNumber, number, want)
	}

	log.Info("Walkthrough complete",
		zap.String("counter", res.Counter.Hex()),
		zap.String("number", number.String()),
	)
	return res, nil
}
