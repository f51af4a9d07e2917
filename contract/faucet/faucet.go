// Package faucet binds the gas faucet contract.
package faucet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/contract"
)

var FaucetMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[{\"internalType\":\"address\",\"name\":\"_user\",\"type\":\"address\"}],\"name\":\"canTop\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"getToppingAmount\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"minTopping\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[{\"internalType\":\"address payable\",\"name\":\"_wallet\",\"type\":\"address\"}],\"name\":\"topWallet\",\"outputs\":[],\"stateMutability\":\"nonpayable\",\"type\":\"function\"}]",
}

type Faucet struct {
	*contract.Bound
}

func New(address common.Address) (*Faucet, error) {
	parsed, err := FaucetMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	return &Faucet{Bound: contract.NewBound(address, parsed)}, nil
}

func (f *Faucet) CanTop(ctx context.Context, caller contract.Caller, account common.Address) (bool, error) {
	return f.CallBool(ctx, caller, "canTop", account)
}

// GetToppingAmount returns the balance, in wei, a wallet is topped up to.
func (f *Faucet) GetToppingAmount(ctx context.Context, caller contract.Caller) (*big.Int, error) {
	return f.CallBigInt(ctx, caller, "getToppingAmount")
}

// MinTopping returns the percentage of the topping amount below which a
// wallet is considered empty.
func (f *Faucet) MinTopping(ctx context.Context, caller contract.Caller) (*big.Int, error) {
	return f.CallBigInt(ctx, caller, "minTopping")
}

func (f *Faucet) PackTopWallet(account common.Address) ([]byte, error) {
	return f.Pack("topWallet", account)
}
