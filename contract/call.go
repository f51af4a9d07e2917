package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Caller is the read side of an eth client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
}

// Bound is a contract ABI bound to an address.
type Bound struct {
	address common.Address
	abi     *abi.ABI
}

func NewBound(address common.Address, parsed *abi.ABI) *Bound {
	return &Bound{address: address, abi: parsed}
}

func (b *Bound) Address() common.Address {
	return b.address
}

func (b *Bound) Pack(method string, args ...any) ([]byte, error) {
	return b.abi.Pack(method, args...)
}

// Call executes a view method at the latest block and unpacks its outputs.
func (b *Bound) Call(ctx context.Context, caller Caller, method string, args ...any) ([]any, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot pack %s: %w", method, err)
	}

	to := b.address
	output, err := caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	results, err := b.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("cannot unpack %s: %w", method, err)
	}

	return results, nil
}

func (b *Bound) CallBigInt(ctx context.Context, caller Caller, method string, args ...any) (*big.Int, error) {
	results, err := b.Call(ctx, caller, method, args...)
	if err != nil {
		return nil, err
	}

	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected output of %s", method)
	}

	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T of %s", results[0], method)
	}

	return value, nil
}

func (b *Bound) CallBool(ctx context.Context, caller Caller, method string, args ...any) (bool, error) {
	results, err := b.Call(ctx, caller, method, args...)
	if err != nil {
		return false, err
	}

	if len(results) != 1 {
		return false, fmt.Errorf("unexpected output of %s", method)
	}

	value, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected output type %T of %s", results[0], method)
	}

	return value, nil
}

func (b *Bound) CallAddress(ctx context.Context, caller Caller, method string, args ...any) (common.Address, error) {
	results, err := b.Call(ctx, caller, method, args...)
	if err != nil {
		return common.Address{}, err
	}

	if len(results) != 1 {
		return common.Address{}, fmt.Errorf("unexpected output of %s", method)
	}

	value, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output type %T of %s", results[0], method)
	}

	return value, nil
}

// RevertReason decodes the reason of a reverted call, if any.
func RevertReason(data []byte) (string, bool) {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		return "", false
	}

	return reason, true
}
