package main

import (
	"testing"
	"time"

	"github.com/questx-lab/engagement/config"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENV", config.EnvStaging)
	t.Setenv("LEDGER_CHAIN_ID", "122")
	t.Setenv("LEDGER_CLAIM_COOLDOWN", "24h")
	t.Setenv("FAUCET_MAX_ATTEMPTS", "2")
	t.Setenv("FAUCET_STORE", "bolt")

	var s srv
	s.loadConfig()

	require.Equal(t, config.EnvStaging, s.configs.Env)
	require.Equal(t, int64(122), s.configs.Ledger.ChainID)
	require.Equal(t, 24*time.Hour, s.configs.Ledger.ClaimCooldown)
	require.Equal(t, config.DefaultLedgerConfigs().ResetWindow, s.configs.Ledger.ResetWindow)
	require.Equal(t, 2, s.configs.Faucet.MaxAttempts)
	require.Equal(t, "bolt", s.configs.Faucet.Store)
	require.Equal(t, "ledger", s.configs.LedgerServer.RPCName)
}

func TestParseEnv_Invalid(t *testing.T) {
	require.Panics(t, func() { parseDuration("soon", time.Second) })
	require.Panics(t, func() { parseInt("many", 1) })
	require.Equal(t, time.Second, parseDuration("", time.Second))
	require.Equal(t, int64(7), parseInt64("", 7))
}

func TestNewFaucetStore(t *testing.T) {
	var s srv
	s.configs = config.Configs{Faucet: config.FaucetConfigs{Store: "bolt", BoltFile: t.TempDir() + "/faucet.db"}}
	s.loadContext()

	store, release, err := s.newFaucetStore()
	require.NoError(t, err)
	require.NotNil(t, store)
	release()

	s.configs.Faucet.Store = "s3"
	s.loadContext()
	_, _, err = s.newFaucetStore()
	require.ErrorIs(t, err, config.ErrMisconfigured)
}
