package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/questx-lab/engagement/config"
)

func (s *srv) loadConfig() {
	ledger := config.DefaultLedgerConfigs()
	faucet := config.DefaultFaucetConfigs()
	claim := config.DefaultClaimConfigs()

	s.configs = config.Configs{
		Env:          getEnv("ENV", config.EnvProduction),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		RegistryFile: getEnv("CHAIN_REGISTRY_FILE", "chains.toml"),
		Database: config.DatabaseConfigs{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("MYSQL_HOST", "localhost"),
			Port:     getEnv("MYSQL_PORT", "3306"),
			Database: getEnv("MYSQL_DATABASE", "engagement"),
			User:     getEnv("MYSQL_USER", "mysql"),
			Password: getEnv("MYSQL_PASSWORD", "mysql"),
			LogLevel: getEnv("DATABASE_LOG_LEVEL", "silent"),
		},
		Redis: config.RedisConfigs{
			Addr: getEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		LedgerServer: config.LedgerServerConfigs{
			ServerConfigs: config.ServerConfigs{
				Host: getEnv("LEDGER_HOST", "localhost"),
				Port: getEnv("LEDGER_PORT", "8081"),
			},
			RPCName: getEnv("LEDGER_RPC_NAME", "ledger"),
		},
		PrometheusServer: config.ServerConfigs{
			Host: getEnv("PROMETHEUS_HOST", ""),
			Port: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Ledger: config.LedgerConfigs{
			Name:              getEnv("LEDGER_NAME", ledger.Name),
			Version:           getEnv("LEDGER_VERSION", ledger.Version),
			ChainID:           parseInt64(getEnv("LEDGER_CHAIN_ID", ""), ledger.ChainID),
			Address:           getEnv("LEDGER_ADDRESS", ""),
			Admin:             getEnv("LEDGER_ADMIN", ""),
			BlockTime:         parseDuration(getEnv("LEDGER_BLOCK_TIME", ""), ledger.BlockTime),
			MaxFutureBlocks:   uint64(parseInt64(getEnv("LEDGER_MAX_FUTURE_BLOCKS", ""), int64(ledger.MaxFutureBlocks))),
			ClaimCooldown:     parseDuration(getEnv("LEDGER_CLAIM_COOLDOWN", ""), ledger.ClaimCooldown),
			ResetWindow:       parseDuration(getEnv("LEDGER_RESET_WINDOW", ""), ledger.ResetWindow),
			AppExpiration:     parseDuration(getEnv("LEDGER_APP_EXPIRATION", ""), ledger.AppExpiration),
			ZeroInviterPolicy: config.ZeroInviterPolicy(getEnv("LEDGER_ZERO_INVITER_POLICY", string(ledger.ZeroInviterPolicy))),
			MinDescription:    parseInt(getEnv("LEDGER_MIN_DESCRIPTION", ""), ledger.MinDescription),
			MaxDescription:    parseInt(getEnv("LEDGER_MAX_DESCRIPTION", ""), ledger.MaxDescription),
			RewardAmount:      getEnv("LEDGER_REWARD_AMOUNT", ""),
			MaxRewardsPerApp:  getEnv("LEDGER_MAX_REWARDS_PER_APP", ""),
		},
		Faucet: config.FaucetConfigs{
			BackendURL:     getEnv("FAUCET_BACKEND_URL", ""),
			BackendToken:   getEnv("FAUCET_BACKEND_TOKEN", ""),
			ThrottleWindow: parseDuration(getEnv("FAUCET_THROTTLE_WINDOW", ""), faucet.ThrottleWindow),
			MaxAttempts:    parseInt(getEnv("FAUCET_MAX_ATTEMPTS", ""), faucet.MaxAttempts),
			RetryDelay:     parseDuration(getEnv("FAUCET_RETRY_DELAY", ""), faucet.RetryDelay),
			Store:          getEnv("FAUCET_STORE", faucet.Store),
			BoltFile:       getEnv("FAUCET_BOLT_FILE", "data/faucet.db"),
			KeyPrefix:      getEnv("FAUCET_KEY_PREFIX", faucet.KeyPrefix),
		},
		Claim: config.ClaimConfigs{
			SubmitDelay:        parseDuration(getEnv("CLAIM_SUBMIT_DELAY", ""), claim.SubmitDelay),
			ReceiptRetryDelay:  parseDuration(getEnv("CLAIM_RECEIPT_RETRY_DELAY", ""), claim.ReceiptRetryDelay),
			ReceiptMaxAttempts: parseInt(getEnv("CLAIM_RECEIPT_MAX_ATTEMPTS", ""), claim.ReceiptMaxAttempts),
			RPCTimeout:         parseDuration(getEnv("CLAIM_RPC_TIMEOUT", ""), claim.RPCTimeout),
			VerificationURL:    getEnv("CLAIM_VERIFICATION_URL", ""),
		},
		Signer: config.SignerConfigs{
			PrivateKey: getEnv("SIGNER_PRIVATE_KEY", ""),
			Secret:     getEnv("SIGNER_SECRET", ""),
			Nonce:      getEnv("SIGNER_NONCE", ""),
			Address:    getEnv("SIGNER_ADDRESS", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q: %v", s, err))
	}

	return d
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("invalid number %q: %v", s, err))
	}

	return n
}

func parseInt64(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid number %q: %v", s, err))
	}

	return n
}
