package delegation_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/delegation"
	"github.com/cyphera/eip7702-demo/internal/testutil"
)

var target = common.HexToAddress("0x00000000000000000000000000000000000c0de1")

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDesignate_SponsoredByDeployer(t *testing.T) {
	ctx := testContext(t)
	sim := testutil.NewSimChain(t)
	sim.StartMining(testutil.PollInterval)

	applier := delegation.NewApplier(sim.Transactor(sim.Deployer), delegation.WithPollInterval(testutil.PollInterval))

	d, err := applier.Designate(ctx, sim.EOA, target)
	require.NoError(t, err)
	assert.True(t, d.Delegated)
	assert.Equal(t, target, d.Target)

	code, err := sim.Client.CodeAt(ctx, sim.EOA.Address, nil)
	require.NoError(t, err)
	assert.Equal(t, delegation.Marker(target), code)

	// The authorization consumed one EOA nonce even though the EOA sent nothing.
	nonce, err := sim.Client.NonceAt(ctx, sim.EOA.Address, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)
}

func TestDesignate_SelfSponsored(t *testing.T) {
	ctx := testContext(t)
	sim := testutil.NewSimChain(t)
	sim.StartMining(testutil.PollInterval)

	funder := sim.Transactor(sim.Deployer)
	fundTx, err := funder.Send(ctx, &sim.EOA.Address, big.NewInt(1e18), nil)
	require.NoError(t, err)
	_, err = chain.WaitMined(ctx, sim.Client, fundTx.Hash(), testutil.PollInterval)
	require.NoError(t, err)

	applier := delegation.NewApplier(sim.Transactor(sim.EOA), delegation.WithPollInterval(testutil.PollInterval))

	d, err := applier.Designate(ctx, sim.EOA, target)
	require.NoError(t, err)
	assert.Equal(t, target, d.Target)
}

func TestRevoke_ClearsCode(t *testing.T) {
	ctx := testContext(t)
	sim := testutil.NewSimChain(t)
	sim.StartMining(testutil.PollInterval)

	applier := delegation.NewApplier(sim.Transactor(sim.Deployer), delegation.WithPollInterval(testutil.PollInterval))

	_, err := applier.Designate(ctx, sim.EOA, target)
	require.NoError(t, err)

	d, err := applier.Revoke(ctx, sim.EOA)
	require.NoError(t, err)
	assert.False(t, d.Delegated)
	assert.Empty(t, d.Code)

	_, err = applier.Verify(ctx, sim.EOA.Address, target)
	assert.ErrorIs(t, err, delegation.ErrNotDelegated)
}

func TestDesignate_StaleNonceIsRejectedByNetwork(t *testing.T) {
	ctx := testContext(t)
	sim := testutil.NewSimChain(t)
	sim.StartMining(testutil.PollInterval)

	sponsor := sim.Transactor(sim.Deployer)
	applier := delegation.NewApplier(sponsor, delegation.WithPollInterval(testutil.PollInterval))

	// Sign for a nonce the EOA does not have yet.
	auth, err := types.SignSetCode(sim.EOA.Key, types.SetCodeAuthorization{
		ChainID: *uint256.MustFromBig(sponsor.ChainID()),
		Address: target,
		Nonce:   5,
	})
	require.NoError(t, err)

	nonce, err := sponsor.Nonce(ctx)
	require.NoError(t, err)
	tip, feeCap, err := sponsor.Fees(ctx)
	require.NoError(t, err)

	tx, err := sponsor.SignAndSend(ctx, &types.SetCodeTx{
		ChainID:   uint256.MustFromBig(sponsor.ChainID()),
		Nonce:     nonce,
		GasTipCap: uint256.MustFromBig(tip),
		GasFeeCap: uint256.MustFromBig(feeCap),
		Gas:       100_000,
		To:        sim.EOA.Address,
		Value:     new(uint256.Int),
		AuthList:  []types.SetCodeAuthorization{auth},
	})
	require.NoError(t, err)

	_, err = applier.Wait(ctx, tx)
	require.NoError(t, err)

	_, err = applier.Verify(ctx, sim.EOA.Address, target)
	assert.ErrorIs(t, err, delegation.ErrNotDelegated)
}
