package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cyphera/eip7702-demo/internal/config"
	"github.com/cyphera/eip7702-demo/internal/logger"
)

var globalFlags struct {
	rpcURL  string
	envFile string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp().RunContext(ctx, os.Args)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "eip7702",
		Usage: "fund an EOA, deploy Counter and delegate the EOA to it with an EIP-7702 transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "rpc-url",
				Usage:       "JSON-RPC endpoint (overrides RPC_URL, default " + config.DefaultRPCURL + ")",
				Destination: &globalFlags.rpcURL,
			},
			&cli.StringFlag{
				Name:        "env-file",
				Usage:       "dotenv file to load before reading the environment",
				Destination: &globalFlags.envFile,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "log at debug level, including signed transactions",
				Destination: &globalFlags.verbose,
			},
		},
		Before: initRuntime,
		Commands: []*cli.Command{
			fundCmd,
			deployCmd,
			delegateCmd,
			revokeCmd,
			statusCmd,
			counterCmd,
			walkthroughCmd,
			serveCmd,
		},
	}
}

// initRuntime loads the env file, validates configuration and initializes the
// logger with a run ID shared by every line of this invocation.
func initRuntime(c *cli.Context) error {
	if err := config.LoadEnvFile(globalFlags.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.IsSet("rpc-url") {
		cfg.RPCURL = globalFlags.rpcURL
	}

	level := cfg.LogLevel
	if globalFlags.verbose {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Stage: cfg.Stage, RunID: uuid.New().String()})
	logger.Debug("Configuration loaded",
		zap.String("stage", cfg.Stage),
		zap.String("rpc_url", cfg.RPCURL),
	)

	c.App.Metadata = map[string]interface{}{configKey: cfg}
	return nil
}
