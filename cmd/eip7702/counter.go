package main

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cyphera/eip7702-demo/internal/chain"
	"github.com/cyphera/eip7702-demo/internal/config"
	"github.com/cyphera/eip7702-demo/internal/contracts/counter"
)

var (
	counterAddressFlag = &cli.StringFlag{
		Name:  "address",
		Usage: "Counter contract or delegated EOA (default: the EOA)",
	}
	counterFromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "key that sends the transaction: deployer or eoa",
		Value: config.DeployerKey.Name,
	}
)

var counterCmd = &cli.Command{
	Name:  "counter",
	Usage: "call the Counter interface at a contract or delegated EOA",
	Subcommands: []*cli.Command{
		{
			Name:  "number",
			Usage: "read number()",
			Flags: []cli.Flag{counterAddressFlag},
			Action: withSession(func(s *session) error {
				c, err := boundCounter(s)
				if err != nil {
					return err
				}
				number, err := c.Number(s.c.Context)
				if err != nil {
					return err
				}
				s.printf("%s\n", number)
				return nil
			}),
		},
		{
			Name:  "say-hello",
			Usage: "read sayHello()",
			Flags: []cli.Flag{counterAddressFlag},
			Action: withSession(func(s *session) error {
				c, err := boundCounter(s)
				if err != nil {
					return err
				}
				greeting, err := c.SayHello(s.c.Context)
				if err != nil {
					return err
				}
				s.printf("%s\n", greeting)
				return nil
			}),
		},
		{
			Name:  "increment",
			Usage: "send increment()",
			Flags: []cli.Flag{counterAddressFlag, counterFromFlag},
			Action: withSession(func(s *session) error {
				return sendCounterTx(s, func(c *counter.Counter, tr *chain.Transactor) (*types.Transaction, error) {
					return c.Increment(s.c.Context, tr)
				})
			}),
		},
		{
			Name:  "set-number",
			Usage: "send setNumber(value)",
			Flags: []cli.Flag{
				counterAddressFlag,
				counterFromFlag,
				&cli.StringFlag{Name: "value", Usage: "new number", Required: true},
			},
			Action: withSession(func(s *session) error {
				value, err := parseUint256(s.c.String("value"))
				if err != nil {
					return errors.Wrap(err, "invalid --value")
				}
				return sendCounterTx(s, func(c *counter.Counter, tr *chain.Transactor) (*types.Transaction, error) {
					return c.SetNumber(s.c.Context, tr, value)
				})
			}),
		},
		{
			Name:  "transfer",
			Usage: "send transferToSender(amount), paying amount wei to the sender",
			Flags: []cli.Flag{
				counterAddressFlag,
				counterFromFlag,
				&cli.StringFlag{Name: "amount", Usage: "amount in wei", Required: true},
			},
			Action: withSession(func(s *session) error {
				amount, err := parseUint256(s.c.String("amount"))
				if err != nil {
					return errors.Wrap(err, "invalid --amount")
				}
				return sendCounterTx(s, func(c *counter.Counter, tr *chain.Transactor) (*types.Transaction, error) {
					return c.TransferToSender(s.c.Context, tr, amount)
				})
			}),
		},
	},
}

func boundCounter(s *session) (*counter.Counter, error) {
	address, err := s.addressOr(counterAddressFlag.Name, config.EOAKey)
	if err != nil {
		return nil, err
	}
	return counter.New(address, s.client), nil
}

func sendCounterTx(s *session, send func(*counter.Counter, *chain.Transactor) (*types.Transaction, error)) error {
	c, err := boundCounter(s)
	if err != nil {
		return err
	}
	spec, err := senderSpec(s.c.String(counterFromFlag.Name))
	if err != nil {
		return err
	}
	tr, err := s.transactor(spec)
	if err != nil {
		return err
	}

	tx, err := send(c, tr)
	if err != nil {
		return err
	}
	receipt, err := chain.WaitMined(s.c.Context, s.client, tx.Hash(), s.cfg.ReceiptPollInterval)
	if err != nil {
		return err
	}
	s.printf("tx %s included in block %s (gas used %d)\n", tx.Hash().Hex(), receipt.BlockNumber, receipt.GasUsed)
	return nil
}

func parseUint256(v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 0)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return nil, errors.Errorf("%q is not a uint256", v)
	}
	return n, nil
}
