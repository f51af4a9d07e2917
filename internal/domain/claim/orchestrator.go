package claim

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/contract/ubi"
	internalcommon "github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/internal/domain/identity"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/errorx"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

type Status string

const (
	StatusNotWhitelisted Status = "not_whitelisted"
	StatusCanClaim       Status = "can_claim"
	StatusAlreadyClaimed Status = "already_claimed"
)

type Entitlement struct {
	Amount            *big.Int `json:"amount"`
	AltClaimAvailable bool     `json:"altClaimAvailable"`
	AltChainID        int64    `json:"altChainId,omitempty"`
	AltAmount         *big.Int `json:"altAmount,omitempty"`
}

type WalletClaimStatus struct {
	Status        Status      `json:"status"`
	Entitlement   Entitlement `json:"entitlement"`
	NextClaimTime *time.Time  `json:"nextClaimTime,omitempty"`
}

// BalanceAssurer makes sure the account can pay the gas of a claim.
type BalanceAssurer interface {
	CheckBalanceWithRetry(ctx context.Context, chainID int64, account common.Address) (bool, error)
}

// Redirector starts the verification of an account which is not whitelisted.
type Redirector func(ctx context.Context, url string)

// Orchestrator drives the claims of one account. Its operations are
// sequential, the identity root is resolved once per instance.
type Orchestrator struct {
	factory   *blockchain.ClientFactory
	resolver  identity.Resolver
	submitter *blockchain.Submitter
	faucet    BalanceAssurer
	redirect  Redirector
	chainID   int64

	mutex sync.Mutex
	root  *identity.Root
}

func NewOrchestrator(
	factory *blockchain.ClientFactory,
	resolver identity.Resolver,
	submitter *blockchain.Submitter,
	faucet BalanceAssurer,
	chainID int64,
) *Orchestrator {
	if chainID == 0 {
		chainID = factory.Registry().PrimaryChain()
	}

	return &Orchestrator{
		factory:   factory,
		resolver:  resolver,
		submitter: submitter,
		faucet:    faucet,
		chainID:   chainID,
		redirect: func(ctx context.Context, url string) {
			xcontext.Logger(ctx).Infof("Please verify your account at %s", url)
		},
	}
}

func (o *Orchestrator) WithRedirector(redirect Redirector) *Orchestrator {
	o.redirect = redirect
	return o
}

func (o *Orchestrator) Account() common.Address {
	return o.submitter.Signer().Address()
}

func (o *Orchestrator) ChainID() int64 {
	return o.chainID
}

// resolveRoot caches the root of a whitelisted account. Accounts which are
// not whitelisted are resolved again next time, they may be verified by then.
func (o *Orchestrator) resolveRoot(ctx context.Context) (identity.Root, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.root != nil {
		return *o.root, nil
	}

	root, err := o.resolver.ResolveRoot(ctx, o.chainID, o.Account())
	if err != nil {
		if errors.Is(err, config.ErrMisconfigured) {
			return identity.Root{}, errorx.Wrap(errorx.Misconfigured, err, "cannot resolve identity")
		}

		return identity.Root{}, errorx.Wrap(errorx.Unavailable, err, "cannot resolve identity")
	}

	if root.IsWhitelisted {
		o.root = &root
	}

	return root, nil
}

func (o *Orchestrator) ubi(chainID int64) (*ubi.UBI, error) {
	address, err := o.factory.Registry().ContractAddress(chainID, config.ContractUBI)
	if err != nil {
		return nil, err
	}

	return ubi.New(address)
}

func (o *Orchestrator) entitlementOn(ctx context.Context, chainID int64, root common.Address) (*big.Int, error) {
	contract, err := o.ubi(chainID)
	if err != nil {
		return nil, err
	}

	var amount *big.Int
	err = o.factory.Execute(ctx, chainID, "checkEntitlement", func(ctx context.Context, client eth.EthClient) error {
		var err error
		amount, err = contract.CheckEntitlement(ctx, client, root)
		return err
	})
	if err != nil {
		return nil, err
	}

	return amount, nil
}

// searchFallback returns the first fallback chain with a positive entitlement.
// Every endpoint of a chain is tried before the chain is given up.
func (o *Orchestrator) searchFallback(ctx context.Context, root common.Address) (int64, *big.Int, error) {
	for _, chainID := range o.factory.Registry().FallbackChains() {
		if chainID == o.chainID {
			continue
		}

		contract, err := o.ubi(chainID)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Skip fallback chain %d: %v", chainID, err)
			continue
		}

		var amount *big.Int
		err = o.factory.ForEachEndpoint(ctx, chainID, func(ctx context.Context, client eth.EthClient) (bool, error) {
			result, err := contract.CheckEntitlement(ctx, client, root)
			if err != nil {
				return false, err
			}

			amount = result
			return true, nil
		})
		if err != nil {
			xcontext.Logger(ctx).Debugf("Skip fallback chain %d: %v", chainID, err)
			continue
		}

		if amount != nil && amount.Sign() > 0 {
			return chainID, amount, nil
		}
	}

	return 0, nil, nil
}

// CheckEntitlement reads the claimable amount of the root identity. When the
// primary chain has nothing and no chain is requested, the fallback chains are
// searched in their priority order.
func (o *Orchestrator) CheckEntitlement(ctx context.Context, override *int64) (Entitlement, error) {
	root, err := o.resolveRoot(ctx)
	if err != nil {
		return Entitlement{}, err
	}

	if !root.IsWhitelisted {
		return Entitlement{Amount: big.NewInt(0)}, nil
	}

	return o.checkEntitlement(ctx, root.Address, override)
}

func (o *Orchestrator) checkEntitlement(ctx context.Context, root common.Address, override *int64) (Entitlement, error) {
	chainID := o.chainID
	if override != nil {
		chainID = *override
	}

	amount, err := o.entitlementOn(ctx, chainID, root)
	if err != nil {
		return Entitlement{}, wrapChainError(err, errorx.Unavailable, "cannot check entitlement on chain %d", chainID)
	}

	result := Entitlement{Amount: amount}
	if amount.Sign() > 0 || override != nil {
		return result, nil
	}

	altChainID, altAmount, err := o.searchFallback(ctx, root)
	if err != nil {
		return Entitlement{}, wrapChainError(err, errorx.Unavailable, "cannot search fallback chains")
	}

	if altAmount != nil {
		result.AltClaimAvailable = true
		result.AltChainID = altChainID
		result.AltAmount = altAmount
	}

	return result, nil
}

// nextClaimTime is periodStart + (currentDay+1) days on the chain.
func (o *Orchestrator) nextClaimTime(ctx context.Context) (time.Time, error) {
	contract, err := o.ubi(o.chainID)
	if err != nil {
		return time.Time{}, err
	}

	var currentDay, periodStart *big.Int
	err = o.factory.Execute(ctx, o.chainID, "currentDay", func(ctx context.Context, client eth.EthClient) error {
		var err error
		if currentDay, err = contract.CurrentDay(ctx, client); err != nil {
			return err
		}

		periodStart, err = contract.PeriodStart(ctx, client)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}

	next := time.Unix(periodStart.Int64(), 0).UTC()
	return next.Add(time.Duration(currentDay.Int64()+1) * 24 * time.Hour), nil
}

func (o *Orchestrator) GetWalletClaimStatus(ctx context.Context) (WalletClaimStatus, error) {
	root, err := o.resolveRoot(ctx)
	if err != nil {
		return WalletClaimStatus{}, err
	}

	if !root.IsWhitelisted {
		return WalletClaimStatus{
			Status:      StatusNotWhitelisted,
			Entitlement: Entitlement{Amount: big.NewInt(0)},
		}, nil
	}

	entitlement, err := o.checkEntitlement(ctx, root.Address, nil)
	if err != nil {
		return WalletClaimStatus{}, err
	}

	if entitlement.Amount.Sign() > 0 {
		return WalletClaimStatus{Status: StatusCanClaim, Entitlement: entitlement}, nil
	}

	next, err := o.nextClaimTime(ctx)
	if err != nil {
		return WalletClaimStatus{}, wrapChainError(err, errorx.Unavailable, "cannot get next claim time")
	}

	return WalletClaimStatus{
		Status:        StatusAlreadyClaimed,
		Entitlement:   entitlement,
		NextClaimTime: &next,
	}, nil
}

func (o *Orchestrator) verificationURL(ctx context.Context) string {
	base := xcontext.Configs(ctx).Claim.VerificationURL
	u, err := url.Parse(base)
	if err != nil {
		return base
	}

	query := u.Query()
	query.Set("account", o.Account().Hex())
	query.Set("chainId", strconv.FormatInt(o.chainID, 10))
	u.RawQuery = query.Encode()
	return u.String()
}

// Claim submits the claim of the current period on the chain of the
// orchestrator and waits for its receipt. onHash is called as soon as the
// transaction is submitted.
func (o *Orchestrator) Claim(ctx context.Context, onHash func(common.Hash)) (*ethtypes.Receipt, error) {
	receipt, err := o.claim(ctx, onHash)

	status := "success"
	if err != nil {
		var e errorx.Error
		if errors.As(err, &e) {
			status = strconv.Itoa(int(e.Code))
		} else {
			status = "failed"
		}
	}

	prometheus.Inc(internalcommon.ClaimTotal, strconv.FormatInt(o.chainID, 10), status)
	return receipt, err
}

func (o *Orchestrator) claim(ctx context.Context, onHash func(common.Hash)) (*ethtypes.Receipt, error) {
	root, err := o.resolveRoot(ctx)
	if err != nil {
		return nil, err
	}

	if !root.IsWhitelisted {
		o.redirect(ctx, o.verificationURL(ctx))
		return nil, errorx.New(errorx.RequiresVerification,
			"account %s requires verification before claiming", o.Account().Hex())
	}

	chainID := o.chainID
	entitlement, err := o.checkEntitlement(ctx, root.Address, &chainID)
	if err != nil {
		return nil, err
	}

	if entitlement.Amount.Sign() <= 0 {
		return nil, errorx.New(errorx.NothingToClaim, "nothing to claim this period on chain %d", chainID)
	}

	ok, err := o.faucet.CheckBalanceWithRetry(ctx, chainID, o.Account())
	if err != nil {
		if errors.Is(err, config.ErrMisconfigured) {
			return nil, errorx.Wrap(errorx.Misconfigured, err, "cannot check gas balance")
		}

		return nil, errorx.Wrap(errorx.InsufficientGas, err, "cannot ensure gas balance")
	}

	if !ok {
		return nil, errorx.New(errorx.InsufficientGas,
			"not enough gas to claim on chain %d, please try again later", chainID)
	}

	contract, err := o.ubi(chainID)
	if err != nil {
		return nil, errorx.Wrap(errorx.Misconfigured, err, "cannot claim")
	}

	data, err := contract.PackClaim()
	if err != nil {
		return nil, errorx.Wrap(errorx.Internal, err, "cannot pack claim")
	}

	receipt, err := o.submitter.SubmitAndWait(ctx, chainID, blockchain.Call{
		Method: "claim",
		To:     contract.Address(),
		Data:   data,
	}, onHash)
	if err != nil {
		var revertErr *blockchain.RevertError
		if errors.As(err, &revertErr) {
			return receipt, errorx.New(errorx.ClaimFailed, "claim failed: %s", revertErr.Reason)
		}

		return receipt, wrapChainError(err, errorx.ClaimFailed, "claim failed")
	}

	xcontext.Logger(ctx).Infof("Claimed %s on chain %d for %s in tx %s",
		entitlement.Amount, chainID, root.Address.Hex(), receipt.TxHash)
	return receipt, nil
}

// wrapChainError maps chain errors to error codes, fallback is used for the
// errors which are not classified.
func wrapChainError(err error, fallback errorx.Code, format string, a ...any) error {
	var e errorx.Error
	if errors.As(err, &e) {
		return err
	}

	msg := fmt.Sprintf(format, a...)
	switch {
	case errors.Is(err, config.ErrMisconfigured):
		return errorx.Wrap(errorx.Misconfigured, err, msg)
	case errors.Is(err, blockchain.ErrNotEnoughBalance):
		return errorx.Wrap(errorx.InsufficientGas, err, msg)
	case errors.Is(err, blockchain.ErrTransport), errors.Is(err, blockchain.ErrReceiptNotFound):
		return errorx.Wrap(errorx.Unavailable, err, msg)
	}

	return errorx.Wrap(fallback, err, msg)
}
