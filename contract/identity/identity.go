// Package identity binds the identity contract which maps connected accounts
// to their whitelisted root.
package identity

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/contract"
)

var IdentityMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[{\"internalType\":\"address\",\"name\":\"account\",\"type\":\"address\"}],\"name\":\"getWhitelistedRoot\",\"outputs\":[{\"internalType\":\"address\",\"name\":\"root\",\"type\":\"address\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]",
}

type Identity struct {
	*contract.Bound
}

func New(address common.Address) (*Identity, error) {
	parsed, err := IdentityMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	return &Identity{Bound: contract.NewBound(address, parsed)}, nil
}

// GetWhitelistedRoot returns the zero address when the account is not
// connected to any whitelisted root.
func (i *Identity) GetWhitelistedRoot(ctx context.Context, caller contract.Caller, account common.Address) (common.Address, error) {
	return i.CallAddress(ctx, caller, "getWhitelistedRoot", account)
}
