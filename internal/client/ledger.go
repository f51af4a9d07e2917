package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/internal/domain/ledger"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

// requestValidBlocks is how long a signed request is accepted by the ledger.
const requestValidBlocks = 10

var ErrNoSigner = errors.New("ledger caller has no signer")

type LedgerCaller interface {
	ApplyApp(ctx context.Context, req ledger.ApplyAppRequest) error
	Approve(ctx context.Context, app common.Address) error
	UpdateAppSettings(
		ctx context.Context,
		app, receiver common.Address,
		userAndInviterPercentage, userPercentage int,
	) error
	ClaimWithSignature(
		ctx context.Context,
		app, inviter common.Address,
		validUntilBlock uint64,
		signature []byte,
	) (ledger.ClaimResult, error)
	SetRewardAmount(ctx context.Context, amount *big.Int) error
	SetMaxRewardsPerApp(ctx context.Context, amount *big.Int) error
	SetAdmin(ctx context.Context, account common.Address, enabled bool) error
	Deposit(ctx context.Context, amount *big.Int) error

	GetApp(ctx context.Context, app common.Address) (*ledger.AppInfo, error)
	GetAppStats(ctx context.Context, app common.Address) (*ledger.AppStats, error)
	IsUserRegistered(ctx context.Context, app, user common.Address) (bool, error)
	IsAdmin(ctx context.Context, account common.Address) (bool, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Domain(ctx context.Context) (ledger.Domain, error)
	RewardAmount(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Close()
}

type ledgerCaller struct {
	client *rpc.Client
	signer ledger.HashSigner
}

// NewLedgerCaller returns a caller which signs its writes with signer. A nil
// signer only allows reads.
func NewLedgerCaller(client *rpc.Client, signer ledger.HashSigner) *ledgerCaller {
	return &ledgerCaller{client: client, signer: signer}
}

func (c *ledgerCaller) ApplyApp(ctx context.Context, req ledger.ApplyAppRequest) error {
	return c.write(ctx, nil, "applyApp", req)
}

func (c *ledgerCaller) Approve(ctx context.Context, app common.Address) error {
	return c.write(ctx, nil, "approve", app)
}

func (c *ledgerCaller) UpdateAppSettings(
	ctx context.Context,
	app, receiver common.Address,
	userAndInviterPercentage, userPercentage int,
) error {
	return c.write(ctx, nil, "updateAppSettings", app, receiver, userAndInviterPercentage, userPercentage)
}

func (c *ledgerCaller) ClaimWithSignature(
	ctx context.Context,
	app, inviter common.Address,
	validUntilBlock uint64,
	signature []byte,
) (ledger.ClaimResult, error) {
	var result ledger.ClaimResult
	err := c.write(ctx, &result, "claimWithSignature",
		app, inviter, hexutil.Uint64(validUntilBlock), hexutil.Bytes(signature))
	if err != nil {
		return ledger.ClaimResult{}, err
	}

	return result, nil
}

func (c *ledgerCaller) SetRewardAmount(ctx context.Context, amount *big.Int) error {
	return c.write(ctx, nil, "setRewardAmount", (*hexutil.Big)(amount))
}

func (c *ledgerCaller) SetMaxRewardsPerApp(ctx context.Context, amount *big.Int) error {
	return c.write(ctx, nil, "setMaxRewardsPerApp", (*hexutil.Big)(amount))
}

func (c *ledgerCaller) SetAdmin(ctx context.Context, account common.Address, enabled bool) error {
	return c.write(ctx, nil, "setAdmin", account, enabled)
}

func (c *ledgerCaller) Deposit(ctx context.Context, amount *big.Int) error {
	return c.write(ctx, nil, "deposit", (*hexutil.Big)(amount))
}

func (c *ledgerCaller) GetApp(ctx context.Context, app common.Address) (*ledger.AppInfo, error) {
	var result ledger.AppInfo
	if err := c.client.CallContext(ctx, &result, c.fname(ctx, "getApp"), app); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *ledgerCaller) GetAppStats(ctx context.Context, app common.Address) (*ledger.AppStats, error) {
	var result ledger.AppStats
	if err := c.client.CallContext(ctx, &result, c.fname(ctx, "getAppStats"), app); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *ledgerCaller) IsUserRegistered(ctx context.Context, app, user common.Address) (bool, error) {
	var result bool
	err := c.client.CallContext(ctx, &result, c.fname(ctx, "isUserRegistered"), app, user)
	return result, err
}

func (c *ledgerCaller) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	var result bool
	err := c.client.CallContext(ctx, &result, c.fname(ctx, "isAdmin"), account)
	return result, err
}

func (c *ledgerCaller) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.client.CallContext(ctx, &result, c.fname(ctx, "blockNumber")); err != nil {
		return 0, err
	}

	return uint64(result), nil
}

func (c *ledgerCaller) Domain(ctx context.Context) (ledger.Domain, error) {
	var result ledger.Domain
	err := c.client.CallContext(ctx, &result, c.fname(ctx, "domain"))
	return result, err
}

func (c *ledgerCaller) RewardAmount(ctx context.Context) (*big.Int, error) {
	return c.amount(ctx, "rewardAmount")
}

func (c *ledgerCaller) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.amount(ctx, "balanceOf", account)
}

func (c *ledgerCaller) Close() {
	c.client.Close()
}

func (c *ledgerCaller) amount(ctx context.Context, funcName string, args ...any) (*big.Int, error) {
	var result hexutil.Big
	if err := c.client.CallContext(ctx, &result, c.fname(ctx, funcName), args...); err != nil {
		return nil, err
	}

	return result.ToInt(), nil
}

// write signs the call for the current block of the ledger and sends it with
// the request as the first parameter.
func (c *ledgerCaller) write(ctx context.Context, result any, funcName string, params ...any) error {
	if c.signer == nil {
		return ErrNoSigner
	}

	domain, err := c.Domain(ctx)
	if err != nil {
		return err
	}

	block, err := c.BlockNumber(ctx)
	if err != nil {
		return err
	}

	nonce := uint64(time.Now().UnixNano())
	req, err := ledger.SignRequest(c.signer, domain, funcName, nonce, block+requestValidBlocks, params...)
	if err != nil {
		return err
	}

	return c.client.CallContext(ctx, result, c.fname(ctx, funcName), append([]any{req}, params...)...)
}

func (c *ledgerCaller) fname(ctx context.Context, funcName string) string {
	return fmt.Sprintf("%s_%s", xcontext.Configs(ctx).LedgerServer.RPCName, funcName)
}
