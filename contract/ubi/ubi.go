// Package ubi binds the daily claim contract.
package ubi

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/contract"
)

var UBIMetaData = &bind.MetaData{
	ABI: "[{\"inputs\":[{\"internalType\":\"address\",\"name\":\"_member\",\"type\":\"address\"}],\"name\":\"checkEntitlement\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"claim\",\"outputs\":[{\"internalType\":\"bool\",\"name\":\"\",\"type\":\"bool\"}],\"stateMutability\":\"nonpayable\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"currentDay\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"},{\"inputs\":[],\"name\":\"periodStart\",\"outputs\":[{\"internalType\":\"uint256\",\"name\":\"\",\"type\":\"uint256\"}],\"stateMutability\":\"view\",\"type\":\"function\"}]",
}

type UBI struct {
	*contract.Bound
}

func New(address common.Address) (*UBI, error) {
	parsed, err := UBIMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	return &UBI{Bound: contract.NewBound(address, parsed)}, nil
}

// CheckEntitlement returns the amount the member can claim today.
func (u *UBI) CheckEntitlement(ctx context.Context, caller contract.Caller, member common.Address) (*big.Int, error) {
	return u.CallBigInt(ctx, caller, "checkEntitlement", member)
}

func (u *UBI) CurrentDay(ctx context.Context, caller contract.Caller) (*big.Int, error) {
	return u.CallBigInt(ctx, caller, "currentDay")
}

// PeriodStart returns the unix time in seconds of the first claim day.
func (u *UBI) PeriodStart(ctx context.Context, caller contract.Caller) (*big.Int, error) {
	return u.CallBigInt(ctx, caller, "periodStart")
}

func (u *UBI) PackClaim() ([]byte, error) {
	return u.Pack("claim")
}
