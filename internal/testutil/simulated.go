package testutil

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

// PollInterval is the receipt poll interval tests should use with a SimChain.
const PollInterval = 10 * time.Millisecond

// DeployerBalance is the genesis balance of the deployer account.
var DeployerBalance = new(big.Int).Mul(big.NewInt(1000), big.NewInt(1e18))

// SimChain is an in-process Prague chain (chain ID 1337) with a funded
// deployer and an unfunded EOA.
type SimChain struct {
	t        *testing.T
	Backend  *simulated.Backend
	Client   simulated.Client
	Deployer *wallet.Account
	EOA      *wallet.Account

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSimChain starts a simulated chain that is closed when the test ends.
func NewSimChain(t *testing.T) *SimChain {
	t.Helper()

	deployer := newAccount(t)
	eoa := newAccount(t)

	backend := simulated.NewBackend(types.GenesisAlloc{
		deployer.Address: {Balance: DeployerBalance},
	})

	sim := &SimChain{
		t:        t,
		Backend:  backend,
		Client:   backend.Client(),
		Deployer: deployer,
		EOA:      eoa,
	}
	t.Cleanup(func() {
		sim.StopMining()
		_ = backend.Close()
	})
	return sim
}

// NewAccount returns a fresh random account.
func (s *SimChain) NewAccount() *wallet.Account {
	return newAccount(s.t)
}

// Transactor binds account to the simulated client.
func (s *SimChain) Transactor(account *wallet.Account) *chain.Transactor {
	s.t.Helper()
	tr, err := chain.NewTransactor(context.Background(), s.Client, account)
	require.NoError(s.t, err)
	return tr
}

// StartMining seals a block every interval until StopMining is called, so
// code that submits and then waits for receipts can run unmodified.
func (s *SimChain) StartMining(interval time.Duration) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.stopOnce = sync.Once{}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Backend.Commit()
			}
		}
	}()
}

// StopMining stops a loop started by StartMining.
func (s *SimChain) StopMining() {
	if s.stop == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func newAccount(t *testing.T) *wallet.Account {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet.NewAccount(key)
}
