package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cyphera/eip7702-demo/internal/config"
	"github.com/cyphera/eip7702-demo/internal/server"
	"github.com/cyphera/eip7702-demo/internal/walkthrough"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

var walkthroughCmd = &cli.Command{
	Name:  "walkthrough",
	Usage: "fund, deploy, delegate, verify and increment through the EOA",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "increments", Usage: "times to call increment() through the EOA", Value: walkthrough.DefaultIncrements},
		&cli.StringFlag{Name: "artifact", Usage: "forge artifact to deploy instead of the built-in bytecode"},
		&cli.StringFlag{Name: "counter", Usage: "reuse a deployed Counter instead of deploying"},
		&cli.BoolFlag{Name: "skip-fund", Usage: "do not fund the EOA"},
	},
	Action: withSession(func(s *session) error {
		deployer, err := s.transactor(config.DeployerKey)
		if err != nil {
			return err
		}
		eoa, err := s.account(config.EOAKey)
		if err != nil {
			return err
		}

		opts := walkthrough.Options{
			FundAmount:         s.cfg.FundAmount,
			GasPrice:           s.cfg.GasPrice,
			Increments:         s.c.Int("increments"),
			DelegationGasLimit: s.cfg.DelegationGasLimit,
			PollInterval:       s.cfg.ReceiptPollInterval,
		}
		if s.c.Bool("skip-fund") {
			opts.FundAmount = nil
		}
		if v := s.c.String("counter"); v != "" {
			var address common.Address
			if address, err = wallet.ParseAddress(v); err != nil {
				return errors.Wrap(err, "invalid --counter")
			}
			opts.Counter = &address
		} else if opts.Bytecode, err = loadBytecode(s.c.String("artifact")); err != nil {
			return err
		}

		res, err := walkthrough.NewRunner(deployer, eoa, opts).Run(s.c.Context)
		if err != nil {
			return err
		}
		s.printf("EOA %s delegates to Counter %s\n", res.EOA.Hex(), res.Counter.Hex())
		s.printf("number() = %s\n", res.Number)
		return nil
	}),
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "serve delegation and Counter state over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "port", Usage: "listen port (default: HTTP_PORT)"},
	},
	Action: withSession(func(s *session) error {
		port := s.cfg.HTTPPort
		if v := s.c.String("port"); v != "" {
			port = v
		}

		srv, err := server.New(s.client, server.Options{
			Port:           port,
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			RateLimitRPS:   s.cfg.RateLimitRPS,
			RateLimitBurst: s.cfg.RateLimitBurst,
		})
		if err != nil {
			return err
		}
		return srv.Run(s.c.Context)
	}),
}
