package config

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"STAGE", "LOG_LEVEL", "RPC_URL", "CHAIN_ID", "GAS_PRICE_WEI", "FUND_AMOUNT_WEI",
	"DELEGATION_GAS_LIMIT", "RECEIPT_POLL_INTERVAL", "HTTP_PORT",
	"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StageLocal, cfg.Stage)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
	assert.Nil(t, cfg.ChainID)
	assert.Nil(t, cfg.GasPrice)
	assert.Equal(t, 0, cfg.FundAmount.Cmp(DefaultFundAmount))
	assert.Equal(t, uint64(DefaultDelegationGasLimit), cfg.DelegationGasLimit)
	assert.Equal(t, DefaultReceiptPollInterval, cfg.ReceiptPollInterval)
	assert.Equal(t, DefaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSAllowedOrigins)
	assert.Equal(t, DefaultRateLimitRPS, cfg.RateLimitRPS)
	assert.Equal(t, DefaultRateLimitBurst, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STAGE", StageDev)
	t.Setenv("RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("CHAIN_ID", "1337")
	t.Setenv("GAS_PRICE_WEI", "0x3b9aca00")
	t.Setenv("FUND_AMOUNT_WEI", "5")
	t.Setenv("DELEGATION_GAS_LIMIT", "250000")
	t.Setenv("RECEIPT_POLL_INTERVAL", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example,")
	t.Setenv("RATE_LIMIT_RPS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StageDev, cfg.Stage)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
	assert.Equal(t, big.NewInt(1337), cfg.ChainID)
	assert.Equal(t, big.NewInt(1_000_000_000), cfg.GasPrice)
	assert.Equal(t, big.NewInt(5), cfg.FundAmount)
	assert.Equal(t, uint64(250000), cfg.DelegationGasLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.ReceiptPollInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimitRPS)
	assert.Equal(t, DefaultRateLimitBurst, cfg.RateLimitBurst)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad stage", key: "STAGE", value: "staging"},
		{name: "bad chain id", key: "CHAIN_ID", value: "one"},
		{name: "negative fund amount", key: "FUND_AMOUNT_WEI", value: "-1"},
		{name: "zero gas limit", key: "DELEGATION_GAS_LIMIT", value: "0"},
		{name: "bad gas limit", key: "DELEGATION_GAS_LIMIT", value: "lots"},
		{name: "bad poll interval", key: "RECEIPT_POLL_INTERVAL", value: "soon"},
		{name: "zero rate limit", key: "RATE_LIMIT_RPS", value: "0"},
		{name: "bad burst", key: "RATE_LIMIT_BURST", value: "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("RPC_URL")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RPC_URL=http://node:8848\n"), 0o600))

	require.NoError(t, LoadEnvFile(path))
	t.Cleanup(func() { os.Unsetenv("RPC_URL") })
	assert.Equal(t, "http://node:8848", os.Getenv("RPC_URL"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

type staticSecrets map[string]string

func (s staticSecrets) GetSecretString(_ context.Context, _ string, fallbackEnvVar string) (string, error) {
	if v, ok := s[fallbackEnvVar]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func TestLoadAccount(t *testing.T) {
	ctx := context.Background()
	src := staticSecrets{
		DeployerKey.EnvVar: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		EOAKey.EnvVar:      "not-a-key",
	}

	account, err := LoadAccount(ctx, src, DeployerKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), account.Address)

	_, err = LoadAccount(ctx, src, EOAKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eoa")

	_, err = LoadAccount(ctx, staticSecrets{}, EOAKey)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestNewSecretSource_WithoutArns(t *testing.T) {
	t.Setenv(DeployerKey.ArnEnvVar, "")
	t.Setenv(EOAKey.ArnEnvVar, "")
	t.Setenv(EOAKey.EnvVar, "0x01")

	src, err := NewSecretSource(context.Background())
	require.NoError(t, err)

	value, err := src.GetSecretString(context.Background(), EOAKey.ArnEnvVar, EOAKey.EnvVar)
	require.NoError(t, err)
	assert.Equal(t, "0x01", value)
}
