package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/config"
	identitycontract "github.com/questx-lab/engagement/contract/identity"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
)

var ErrResolutionFailed = errors.New("cannot resolve whitelisted root")

// Root is the whitelisted identity an account is connected to.
type Root struct {
	IsWhitelisted bool
	Address       common.Address
}

type Resolver interface {
	ResolveRoot(ctx context.Context, chainID int64, account common.Address) (Root, error)
}

type chainResolver struct {
	factory *blockchain.ClientFactory
}

func NewResolver(factory *blockchain.ClientFactory) Resolver {
	return &chainResolver{factory: factory}
}

func (r *chainResolver) ResolveRoot(ctx context.Context, chainID int64, account common.Address) (Root, error) {
	address, err := r.factory.Registry().ContractAddress(chainID, config.ContractIdentity)
	if err != nil {
		return Root{}, err
	}

	contract, err := identitycontract.New(address)
	if err != nil {
		return Root{}, err
	}

	var root common.Address
	err = r.factory.Execute(ctx, chainID, "getWhitelistedRoot", func(ctx context.Context, client eth.EthClient) error {
		var err error
		root, err = contract.GetWhitelistedRoot(ctx, client, account)
		return err
	})
	if err != nil {
		if errors.Is(err, config.ErrMisconfigured) {
			return Root{}, err
		}

		return Root{}, fmt.Errorf("%w of %s: %v", ErrResolutionFailed, account, err)
	}

	if root == (common.Address{}) {
		return Root{}, nil
	}

	return Root{IsWhitelisted: true, Address: root}, nil
}

// StaticResolver resolves from an in-memory table. Accounts which are not in
// the table are not whitelisted.
type StaticResolver struct {
	mutex sync.RWMutex
	roots map[common.Address]common.Address
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{roots: make(map[common.Address]common.Address)}
}

// Whitelist connects account to root. A root is connected to itself.
func (r *StaticResolver) Whitelist(account, root common.Address) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.roots[account] = root
	r.roots[root] = root
}

func (r *StaticResolver) Remove(account common.Address) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.roots, account)
}

func (r *StaticResolver) ResolveRoot(_ context.Context, _ int64, account common.Address) (Root, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	root, ok := r.roots[account]
	if !ok {
		return Root{}, nil
	}

	return Root{IsWhitelisted: true, Address: root}, nil
}

// AllowAllResolver treats every account as its own whitelisted root.
type AllowAllResolver struct{}

func (AllowAllResolver) ResolveRoot(_ context.Context, _ int64, account common.Address) (Root, error) {
	return Root{IsWhitelisted: true, Address: account}, nil
}
