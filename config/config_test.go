package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	v.SetConfigName(".teleport")

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "monad-teleport", cfg.Integrator)
	assert.Equal(t, AggregatorLiFi, cfg.Aggregator)
	assert.Equal(t, int64(143), cfg.Destination.ChainID)
	assert.Equal(t, 18, cfg.Destination.Decimals)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 120, cfg.Poll.MaxAttempts)

	chains := cfg.Chains()
	require.Len(t, chains, 4)
	var ids []int64
	for _, c := range chains {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{1, 10, 42161, 8453}, ids)

	base, ok := chains.ByID(8453)
	require.True(t, ok)
	usdc, ok := base.Token("USDC")
	require.True(t, ok)
	assert.Equal(t, 6, usdc.Decimals)
	eth, ok := base.Token("ETH")
	require.True(t, ok)
	assert.True(t, eth.IsNative())

	assert.Equal(t, "https://mainnet.base.org", cfg.RPCURLs()[8453])
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".teleport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
integrator: my-app
aggregator: oneclick
oneclick_jwt_token: from-file
poll:
  interval: 2s
source_chains:
  - id: 8453
    name: Base
    rpc_url: http://localhost:8545
    tokens:
      - address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
        decimals: 6
        symbol: USDC
        asset: USDC
`), 0o600))

	t.Setenv("TELEPORT_ONECLICK_JWT_TOKEN", "from-env")
	t.Setenv("TELEPORT_POLL_MAX_ATTEMPTS", "10")

	v := viper.New()
	v.SetConfigFile(path)

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "my-app", cfg.Integrator)
	assert.Equal(t, AggregatorOneClick, cfg.Aggregator)
	assert.Equal(t, "from-env", cfg.OneClickJWTToken)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 10, cfg.Poll.MaxAttempts)
	require.Len(t, cfg.SourceChains, 1)
	assert.Equal(t, "http://localhost:8545", cfg.SourceChains[0].RPCURL)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	v.AddConfigPath(t.TempDir())
	t.Setenv("TELEPORT_AGGREGATOR", "oneclick")

	_, err := load(v)
	assert.ErrorContains(t, err, "JWT token not found")

	cfg := &Config{Aggregator: "paraswap"}
	assert.ErrorContains(t, cfg.Validate(), "unknown aggregator")

	cfg = &Config{Aggregator: AggregatorLiFi}
	assert.ErrorContains(t, cfg.Validate(), "no source chains")
}

func TestConfigureLogger(t *testing.T) {
	logger, err := ConfigureLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = ConfigureLogger("loud", "text")
	assert.Error(t, err)

	_, err = ConfigureLogger("info", "xml")
	assert.Error(t, err)
}
