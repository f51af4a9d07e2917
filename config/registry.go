package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// ErrMisconfigured is wrapped by every error caused by missing or invalid
// registry data. These errors are never retried.
var ErrMisconfigured = errors.New("misconfigured")

type ContractKind string

const (
	ContractUBI      ContractKind = "ubi"
	ContractIdentity ContractKind = "identity"
	ContractFaucet   ContractKind = "faucet"
	ContractLedger   ContractKind = "ledger"
)

const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
)

type ChainContracts struct {
	UBI      string `toml:"ubi" json:"ubi"`
	Identity string `toml:"identity" json:"identity"`
	Faucet   string `toml:"faucet" json:"faucet"`
	Ledger   string `toml:"ledger" json:"ledger"`
}

func (c ChainContracts) address(kind ContractKind) string {
	switch kind {
	case ContractUBI:
		return c.UBI
	case ContractIdentity:
		return c.Identity
	case ContractFaucet:
		return c.Faucet
	case ContractLedger:
		return c.Ledger
	}

	return ""
}

type ChainConfig struct {
	ID   int64    `toml:"id" json:"id"`
	Name string   `toml:"name" json:"name"`
	Rpcs []string `toml:"rpcs" json:"rpcs"`

	// GasEstimate is the static native balance (in wei) that one claim
	// transaction is expected to cost on this chain.
	GasEstimate string `toml:"gas_estimate" json:"gas_estimate"`

	Contracts map[string]ChainContracts `toml:"contracts" json:"contracts"`
}

type registryFile struct {
	PrimaryChain   int64         `toml:"primary_chain"`
	FallbackChains []int64       `toml:"fallback_chains"`
	Chains         []ChainConfig `toml:"chains"`
}

// ChainRegistry is the immutable description of all supported chains for one
// environment. It is loaded once at startup and shared by every component.
type ChainRegistry struct {
	env       string
	primary   int64
	fallbacks []int64
	chains    map[int64]ChainConfig
	gas       map[int64]*big.Int
}

func LoadChainRegistry(path, env string) (*ChainRegistry, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read registry file %s: %v", ErrMisconfigured, path, err)
	}

	return ParseChainRegistry(string(bz), env)
}

func ParseChainRegistry(data, env string) (*ChainRegistry, error) {
	var file registryFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("%w: cannot decode registry: %v", ErrMisconfigured, err)
	}

	return NewChainRegistry(env, file.PrimaryChain, file.FallbackChains, file.Chains...)
}

func NewChainRegistry(
	env string, primary int64, fallbacks []int64, chains ...ChainConfig,
) (*ChainRegistry, error) {
	if env == "" {
		env = EnvProduction
	}

	r := &ChainRegistry{
		env:     env,
		primary: primary,
		chains:  make(map[int64]ChainConfig, len(chains)),
		gas:     make(map[int64]*big.Int, len(chains)),
	}

	for _, chain := range chains {
		if _, ok := r.chains[chain.ID]; ok {
			return nil, fmt.Errorf("%w: duplicated chain %d", ErrMisconfigured, chain.ID)
		}

		gas := big.NewInt(0)
		if s := strings.TrimSpace(chain.GasEstimate); s != "" {
			if _, ok := gas.SetString(s, 10); !ok || gas.Sign() < 0 {
				return nil, fmt.Errorf("%w: invalid gas estimate %q of chain %d",
					ErrMisconfigured, chain.GasEstimate, chain.ID)
			}
		}

		chain.Rpcs = append([]string(nil), chain.Rpcs...)
		r.chains[chain.ID] = chain
		r.gas[chain.ID] = gas
	}

	if _, ok := r.chains[primary]; !ok {
		return nil, fmt.Errorf("%w: primary chain %d is not configured", ErrMisconfigured, primary)
	}

	for _, id := range fallbacks {
		if _, ok := r.chains[id]; !ok {
			return nil, fmt.Errorf("%w: fallback chain %d is not configured", ErrMisconfigured, id)
		}

		if id != primary {
			r.fallbacks = append(r.fallbacks, id)
		}
	}

	return r, nil
}

func (r *ChainRegistry) Env() string {
	return r.env
}

func (r *ChainRegistry) PrimaryChain() int64 {
	return r.primary
}

// FallbackChains returns the chains searched when the primary chain has
// nothing to claim, in priority order. The primary chain is never included.
func (r *ChainRegistry) FallbackChains() []int64 {
	return append([]int64(nil), r.fallbacks...)
}

func (r *ChainRegistry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (r *ChainRegistry) Chain(chainID int64) (ChainConfig, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: unsupported chain %d", ErrMisconfigured, chainID)
	}

	return chain, nil
}

func (r *ChainRegistry) RPCs(chainID int64) ([]string, error) {
	chain, err := r.Chain(chainID)
	if err != nil {
		return nil, err
	}

	if len(chain.Rpcs) == 0 {
		return nil, fmt.Errorf("%w: no rpc configured for chain %d", ErrMisconfigured, chainID)
	}

	return append([]string(nil), chain.Rpcs...), nil
}

func (r *ChainRegistry) GasEstimate(chainID int64) *big.Int {
	gas, ok := r.gas[chainID]
	if !ok {
		return big.NewInt(0)
	}

	return new(big.Int).Set(gas)
}

func (r *ChainRegistry) ContractAddress(chainID int64, kind ContractKind) (common.Address, error) {
	chain, err := r.Chain(chainID)
	if err != nil {
		return common.Address{}, err
	}

	contracts, ok := chain.Contracts[r.env]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no contracts of chain %d in %s",
			ErrMisconfigured, chainID, r.env)
	}

	addr := contracts.address(kind)
	if !common.IsHexAddress(addr) || common.HexToAddress(addr) == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: missing %s contract of chain %d in %s",
			ErrMisconfigured, kind, chainID, r.env)
	}

	return common.HexToAddress(addr), nil
}
