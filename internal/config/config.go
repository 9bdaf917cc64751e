package config

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awsclient "github.com/cyphera/eip7702-demo/internal/client/aws"
	"github.com/cyphera/eip7702-demo/internal/logger"
	"github.com/cyphera/eip7702-demo/internal/wallet"
)

// Stage constants define the possible runtime environments.
const (
	StageProd  = "prod"
	StageDev   = "dev"
	StageLocal = "local"
)

const (
	DefaultRPCURL              = "http://localhost:8848"
	DefaultDelegationGasLimit  = 100_000
	DefaultReceiptPollInterval = time.Second
	DefaultHTTPPort            = "8000"
	DefaultRateLimitRPS        = 20
	DefaultRateLimitBurst      = 40
)

// DefaultCORSOrigins are allowed when CORS_ALLOWED_ORIGINS is unset.
var DefaultCORSOrigins = []string{"http://localhost:3000"}

// DefaultFundAmount is 1 ether in wei.
var DefaultFundAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// ErrMissingKey is returned when a private key is configured nowhere.
var ErrMissingKey = errors.New("private key not configured")

// KeySpec names the environment variables a private key can be read from.
type KeySpec struct {
	Name      string
	ArnEnvVar string
	EnvVar    string
}

var (
	// DeployerKey funds the EOA, deploys the Counter and sponsors the
	// delegation transaction.
	DeployerKey = KeySpec{Name: "deployer", ArnEnvVar: "DEPLOYER_PRIVATE_KEY_ARN", EnvVar: "DEPLOYER_PRIVATE_KEY"}
	// EOAKey signs the delegation authorization.
	EOAKey = KeySpec{Name: "eoa", ArnEnvVar: "EOA_PRIVATE_KEY_ARN", EnvVar: "EOA_PRIVATE_KEY"}
)

// Config holds the runtime settings read from the environment.
type Config struct {
	Stage               string
	LogLevel            string
	RPCURL              string
	ChainID             *big.Int // nil means "whatever the node reports"
	FundAmount          *big.Int
	GasPrice            *big.Int // nil means "ask the node"
	DelegationGasLimit  uint64
	ReceiptPollInterval time.Duration
	HTTPPort            string
	CORSAllowedOrigins  []string
	RateLimitRPS        int
	RateLimitBurst      int
}

// SecretSource resolves a secret from an ARN variable or a direct variable.
type SecretSource interface {
	GetSecretString(ctx context.Context, secretArnEnvVar string, fallbackEnvVar string) (string, error)
}

// IsValidStage checks if the provided stage string is one of the defined valid stages.
func IsValidStage(stage string) bool {
	switch stage {
	case StageProd, StageDev, StageLocal:
		return true
	default:
		return false
	}
}

// LoadEnvFile loads variables from envFile (or ./.env when empty) without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(envFile string) error {
	var err error
	if envFile == "" {
		err = godotenv.Load()
	} else {
		err = godotenv.Load(envFile)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Stage:               getEnvWithDefault("STAGE", StageLocal),
		LogLevel:            getEnvWithDefault("LOG_LEVEL", "info"),
		RPCURL:              getEnvWithDefault("RPC_URL", DefaultRPCURL),
		FundAmount:          new(big.Int).Set(DefaultFundAmount),
		DelegationGasLimit:  DefaultDelegationGasLimit,
		ReceiptPollInterval: DefaultReceiptPollInterval,
		HTTPPort:            getEnvWithDefault("HTTP_PORT", DefaultHTTPPort),
		CORSAllowedOrigins:  splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", strings.Join(DefaultCORSOrigins, ","))),
		RateLimitRPS:        DefaultRateLimitRPS,
		RateLimitBurst:      DefaultRateLimitBurst,
	}

	if !IsValidStage(cfg.Stage) {
		return nil, fmt.Errorf("invalid STAGE '%s': must be one of %s, %s, %s", cfg.Stage, StageProd, StageDev, StageLocal)
	}

	var err error
	if cfg.ChainID, err = parseBigEnv("CHAIN_ID"); err != nil {
		return nil, err
	}
	if cfg.GasPrice, err = parseBigEnv("GAS_PRICE_WEI"); err != nil {
		return nil, err
	}
	amount, err := parseBigEnv("FUND_AMOUNT_WEI")
	if err != nil {
		return nil, err
	}
	if amount != nil {
		cfg.FundAmount = amount
	}

	if v := os.Getenv("DELEGATION_GAS_LIMIT"); v != "" {
		cfg.DelegationGasLimit, err = strconv.ParseUint(v, 10, 64)
		if err != nil || cfg.DelegationGasLimit == 0 {
			return nil, fmt.Errorf("invalid DELEGATION_GAS_LIMIT '%s'", v)
		}
	}

	if v := os.Getenv("RECEIPT_POLL_INTERVAL"); v != "" {
		cfg.ReceiptPollInterval, err = time.ParseDuration(v)
		if err != nil || cfg.ReceiptPollInterval <= 0 {
			return nil, fmt.Errorf("invalid RECEIPT_POLL_INTERVAL '%s'", v)
		}
	}

	if cfg.RateLimitRPS, err = parsePositiveIntEnv("RATE_LIMIT_RPS", DefaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parsePositiveIntEnv("RATE_LIMIT_BURST", DefaultRateLimitBurst); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewSecretSource returns a Secrets Manager backed source when any key ARN is
// configured and a plain environment source otherwise.
func NewSecretSource(ctx context.Context) (SecretSource, error) {
	if os.Getenv(DeployerKey.ArnEnvVar) == "" && os.Getenv(EOAKey.ArnEnvVar) == "" {
		return awsclient.NewSecretsManagerClientWithAPI(nil), nil
	}

	client, err := awsclient.NewSecretsManagerClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets manager client: %w", err)
	}
	return client, nil
}

// LoadAccount resolves the key described by spec and derives its account.
func LoadAccount(ctx context.Context, src SecretSource, spec KeySpec) (*wallet.Account, error) {
	hexKey, err := src.GetSecretString(ctx, spec.ArnEnvVar, spec.EnvVar)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrMissingKey, spec.Name, err)
	}

	account, err := wallet.AccountFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s key: %w", spec.Name, err)
	}

	logger.Debug("Loaded account",
		zap.String("key", spec.Name),
		zap.String("address", account.Address.Hex()),
	)
	return account, nil
}

func parseBigEnv(key string) (*big.Int, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(v, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s '%s'", key, v)
	}
	return n, nil
}

func parsePositiveIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s '%s'", key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
