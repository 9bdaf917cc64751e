package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/config"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

const configKey = "config"

// session holds what a command needs to talk to the node.
type session struct {
	c       *cli.Context
	cfg     *config.Config
	client  *ethclient.Client
	secrets config.SecretSource
}

func newSession(c *cli.Context) (*session, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}

	client, err := chain.Dial(c.Context, cfg.RPCURL)
	if err != nil {
		return nil, err
	}
	if _, err := chain.CheckChainID(c.Context, client, cfg.ChainID); err != nil {
		client.Close()
		return nil, err
	}

	secrets, err := config.NewSecretSource(c.Context)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &session{c: c, cfg: cfg, client: client, secrets: secrets}, nil
}

func (s *session) Close() {
	s.client.Close()
}

func (s *session) account(spec config.KeySpec) (*wallet.Account, error) {
	return config.LoadAccount(s.c.Context, s.secrets, spec)
}

func (s *session) transactor(spec config.KeySpec) (*chain.Transactor, error) {
	account, err := s.account(spec)
	if err != nil {
		return nil, err
	}
	return chain.NewTransactor(s.c.Context, s.client, account)
}

// addressOr parses the named flag, falling back to the address of the key
// described by spec when the flag is unset.
func (s *session) addressOr(flag string, spec config.KeySpec) (common.Address, error) {
	if v := s.c.String(flag); v != "" {
		address, err := wallet.ParseAddress(v)
		if err != nil {
			return common.Address{}, errors.Wrapf(err, "invalid --%s", flag)
		}
		return address, nil
	}
	account, err := s.account(spec)
	if err != nil {
		return common.Address{}, err
	}
	return account.Address, nil
}

// withSession runs fn with a connected session and wraps its error with the
// command name.
func withSession(fn func(*session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := newSession(c)
		if err != nil {
			return errors.Wrap(err, c.Command.FullName())
		}
		defer s.Close()

		if err := fn(s); err != nil {
			return errors.Wrap(err, c.Command.FullName())
		}
		return nil
	}
}

func (s *session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.c.App.Writer, format, args...)
}

// senderSpec picks the key that sends Counter transactions.
func senderSpec(from string) (config.KeySpec, error) {
	switch from {
	case "", config.DeployerKey.Name:
		return config.DeployerKey, nil
	case config.EOAKey.Name:
		return config.EOAKey, nil
	default:
		return config.KeySpec{}, errors.Errorf("unknown sender %q: must be %s or %s", from, config.DeployerKey.Name, config.EOAKey.Name)
	}
}
