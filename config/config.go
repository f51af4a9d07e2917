package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env      string
	LogLevel string

	Database         DatabaseConfigs
	Redis            RedisConfigs
	LedgerServer     LedgerServerConfigs
	PrometheusServer ServerConfigs
	Ledger           LedgerConfigs
	Faucet           FaucetConfigs
	Claim            ClaimConfigs
	Signer           SignerConfigs

	// RegistryFile is the path of the TOML file describing all supported
	// chains.
	RegistryFile string
}

type DatabaseConfigs struct {
	// Driver is "mysql" or "sqlite". With sqlite, Database is the file path.
	Driver   string
	Host     string
	Port     string
	Database string
	User     string
	Password string

	// LogLevel is passed to the gorm logger, empty means silent.
	LogLevel string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type LedgerServerConfigs struct {
	ServerConfigs
	RPCName string
}

type RedisConfigs struct {
	Addr string
}

type ZeroInviterPolicy string

const (
	// ZeroInviterRetain keeps the inviter share in the ledger pool.
	ZeroInviterRetain ZeroInviterPolicy = "retain"
	// ZeroInviterToUser adds the inviter share to the user reward.
	ZeroInviterToUser ZeroInviterPolicy = "user"
	// ZeroInviterToApp adds the inviter share to the app reward.
	ZeroInviterToApp ZeroInviterPolicy = "app"
)

type LedgerConfigs struct {
	Name              string
	Version           string
	ChainID           int64
	Address           string
	Admin             string
	BlockTime         time.Duration
	MaxFutureBlocks   uint64
	ClaimCooldown     time.Duration
	ResetWindow       time.Duration
	AppExpiration     time.Duration
	ZeroInviterPolicy ZeroInviterPolicy
	MinDescription    int
	MaxDescription    int

	// RewardAmount and MaxRewardsPerApp are decimal amounts stored on the
	// first start only. Later changes are made by the admin.
	RewardAmount     string
	MaxRewardsPerApp string
}

type FaucetConfigs struct {
	BackendURL     string
	BackendToken   string
	ThrottleWindow time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration

	// Store is one of "memory", "redis" or "bolt".
	Store     string
	BoltFile  string
	KeyPrefix string
}

type ClaimConfigs struct {
	SubmitDelay        time.Duration
	ReceiptRetryDelay  time.Duration
	ReceiptMaxAttempts int
	RPCTimeout         time.Duration
	VerificationURL    string
}

type SignerConfigs struct {
	// PrivateKey is a hex encoded key. When it is empty, the key is derived
	// from Secret and Nonce. When both are empty, Address is used with a
	// delegated signer.
	PrivateKey string
	Secret     string
	Nonce      string
	Address    string
}

func DefaultLedgerConfigs() LedgerConfigs {
	return LedgerConfigs{
		Name:              "EngagementRewards",
		Version:           "1.0",
		ChainID:           42220,
		BlockTime:         5 * time.Second,
		MaxFutureBlocks:   50,
		ClaimCooldown:     180 * 24 * time.Hour,
		ResetWindow:       180 * 24 * time.Hour,
		AppExpiration:     365 * 24 * time.Hour,
		ZeroInviterPolicy: ZeroInviterRetain,
		MinDescription:    50,
		MaxDescription:    512,
	}
}

func DefaultFaucetConfigs() FaucetConfigs {
	return FaucetConfigs{
		ThrottleWindow: time.Hour,
		MaxAttempts:    5,
		RetryDelay:     5 * time.Second,
		Store:          "memory",
		KeyPrefix:      "faucet_throttle_",
	}
}

func DefaultClaimConfigs() ClaimConfigs {
	return ClaimConfigs{
		SubmitDelay:        time.Second,
		ReceiptRetryDelay:  3 * time.Second,
		ReceiptMaxAttempts: 40,
		RPCTimeout:         10 * time.Second,
	}
}
