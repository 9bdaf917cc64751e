package main

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/config"
	"github.com/cyphera/eip7702-demo/internal/contracts/counter"
	"github.com/cyphera/eip7702-demo/internal/delegation"
	"github.com/cyphera/eip7702-demo/internal/funding"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

var fundCmd = &cli.Command{
	Name:  "fund",
	Usage: "send a legacy EIP-155 value transfer from the deployer",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "to", Usage: "recipient address (default: the EOA)"},
		&cli.StringFlag{Name: "amount", Usage: "amount in wei (default: FUND_AMOUNT_WEI)"},
	},
	Action: withSession(func(s *session) error {
		to, err := s.addressOr("to", config.EOAKey)
		if err != nil {
			return err
		}

		amount := s.cfg.FundAmount
		if v := s.c.String("amount"); v != "" {
			var ok bool
			if amount, ok = new(big.Int).SetString(v, 0); !ok || amount.Sign() <= 0 {
				return errors.Errorf("invalid --amount %q", v)
			}
		}

		deployer, err := s.transactor(config.DeployerKey)
		if err != nil {
			return err
		}

		receipt, err := funding.NewFunder(deployer, s.cfg.GasPrice, s.cfg.ReceiptPollInterval).FundAndWait(s.c.Context, to, amount)
		if err != nil {
			return err
		}
		s.printf("funded %s with %s wei in tx %s\n", to.Hex(), amount, receipt.TxHash.Hex())
		return nil
	}),
}

var deployCmd = &cli.Command{
	Name:  "deploy",
	Usage: "deploy the Counter contract from the deployer",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "artifact",
			Usage: "forge artifact to deploy instead of the built-in bytecode (e.g. " + counter.DefaultArtifactPath + ")",
		},
	},
	Action: withSession(func(s *session) error {
		bytecode, err := loadBytecode(s.c.String("artifact"))
		if err != nil {
			return err
		}

		deployer, err := s.transactor(config.DeployerKey)
		if err != nil {
			return err
		}

		address, err := counter.DeployAndWait(s.c.Context, deployer, bytecode, s.cfg.ReceiptPollInterval)
		if err != nil {
			return err
		}
		s.printf("Counter deployed at %s\n", address.Hex())
		return nil
	}),
}

var delegateCmd = &cli.Command{
	Name:  "delegate",
	Usage: "designate the EOA's code to a target contract",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "target", Usage: "contract the EOA delegates to", Required: true},
		&cli.BoolFlag{Name: "self", Usage: "let the EOA pay for its own designation"},
	},
	Action: withSession(func(s *session) error {
		target, err := wallet.ParseAddress(s.c.String("target"))
		if err != nil {
			return errors.Wrap(err, "invalid --target")
		}

		applier, eoa, err := newApplier(s)
		if err != nil {
			return err
		}

		d, err := applier.Designate(s.c.Context, eoa, target)
		if err != nil {
			return err
		}
		printDesignation(s, d)
		return nil
	}),
}

var revokeCmd = &cli.Command{
	Name:  "revoke",
	Usage: "clear the EOA's delegation by designating the zero address",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "self", Usage: "let the EOA pay for its own revocation"},
	},
	Action: withSession(func(s *session) error {
		applier, eoa, err := newApplier(s)
		if err != nil {
			return err
		}

		d, err := applier.Revoke(s.c.Context, eoa)
		if err != nil {
			return err
		}
		printDesignation(s, d)
		return nil
	}),
}

var statusCmd = &cli.Command{
	Name:  "status",
	Usage: "show the delegation designation of an account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "account to inspect (default: the EOA)"},
	},
	Action: withSession(func(s *session) error {
		address, err := s.addressOr("address", config.EOAKey)
		if err != nil {
			return err
		}

		d, err := delegation.ReadDesignation(s.c.Context, s.client, address)
		if err != nil {
			return err
		}
		printDesignation(s, d)
		return nil
	}),
}

// newApplier loads the EOA and the sponsor, which is the deployer unless
// --self is given.
func newApplier(s *session) (*delegation.Applier, *wallet.Account, error) {
	eoa, err := s.account(config.EOAKey)
	if err != nil {
		return nil, nil, err
	}

	sponsorAccount := eoa
	if !s.c.Bool("self") {
		if sponsorAccount, err = s.account(config.DeployerKey); err != nil {
			return nil, nil, err
		}
	}

	sponsor, err := chain.NewTransactor(s.c.Context, s.client, sponsorAccount)
	if err != nil {
		return nil, nil, err
	}

	return delegation.NewApplier(sponsor,
		delegation.WithGasLimit(s.cfg.DelegationGasLimit),
		delegation.WithPollInterval(s.cfg.ReceiptPollInterval),
	), eoa, nil
}

func printDesignation(s *session, d *delegation.Designation) {
	if !d.Delegated {
		s.printf("%s is not delegated (code %s)\n", d.Account.Hex(), hexutil.Encode(d.Code))
		return
	}
	s.printf("%s delegates to %s (code %s)\n", d.Account.Hex(), d.Target.Hex(), hexutil.Encode(d.Code))
}

func loadBytecode(artifactPath string) ([]byte, error) {
	if artifactPath == "" {
		return counter.Bytecode(), nil
	}
	return counter.LoadArtifact(artifactPath)
}
