package faucet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/config"
	faucetcontract "github.com/questx-lab/engagement/contract/faucet"
	internalcommon "github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/pkg/api"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

var (
	ErrGasExceedsTopping = errors.New("faucet: gas cost exceeds topping amount")
	ErrCannotAffordGas   = errors.New("faucet: balance cannot cover gas cost")
	ErrTopupFailed       = errors.New("faucet: top-up failed")
)

type Outcome string

const (
	OutcomeSufficient      Outcome = "sufficient"
	OutcomeThrottled       Outcome = "throttled"
	OutcomeIneligible      Outcome = "ineligible"
	OutcomeToppedOnChain   Outcome = "topped_on_chain"
	OutcomeToppedByBackend Outcome = "topped_by_backend"
)

type Result struct {
	Outcome Outcome

	// Sufficient reports whether the account can pay for a claim now.
	Sufficient bool
}

type Assurance struct {
	factory   *blockchain.ClientFactory
	submitter *blockchain.Submitter
	store     Store
	backend   api.Generator
	now       func() time.Time
}

func NewAssurance(
	factory *blockchain.ClientFactory,
	submitter *blockchain.Submitter,
	store Store,
	backend api.Generator,
) *Assurance {
	return &Assurance{
		factory:   factory,
		submitter: submitter,
		store:     store,
		backend:   backend,
		now:       time.Now,
	}
}

type threshold struct {
	minimum       *big.Int
	toppingAmount *big.Int
}

func (a *Assurance) throttleKey(ctx context.Context, chainID int64) string {
	return xcontext.Configs(ctx).Faucet.KeyPrefix + strconv.FormatInt(chainID, 10)
}

func (a *Assurance) throttled(ctx context.Context, chainID int64) (bool, error) {
	value, ok, err := a.store.Get(ctx, a.throttleKey(ctx, chainID))
	if err != nil || !ok {
		return false, err
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Invalid faucet throttle record %q: %v", value, err)
		return false, nil
	}

	elapsed := a.now().Sub(time.UnixMilli(millis))
	return elapsed >= 0 && elapsed < xcontext.Configs(ctx).Faucet.ThrottleWindow, nil
}

func (a *Assurance) stamp(ctx context.Context, chainID int64) {
	value := strconv.FormatInt(a.now().UnixMilli(), 10)
	if err := a.store.Set(ctx, a.throttleKey(ctx, chainID), value); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot stamp faucet throttle of chain %d: %v", chainID, err)
	}
}

func (a *Assurance) balance(ctx context.Context, chainID int64, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := a.factory.Execute(ctx, chainID, "getBalance", func(ctx context.Context, client eth.EthClient) error {
		var err error
		balance, err = client.BalanceAt(ctx, account, nil)
		return err
	})

	return balance, err
}

// threshold is max(chain gas estimate, topping*(100-minTopping)/100).
func (a *Assurance) threshold(ctx context.Context, chainID int64, faucet *faucetcontract.Faucet) (threshold, error) {
	var result threshold
	err := a.factory.Execute(ctx, chainID, "getToppingAmount", func(ctx context.Context, client eth.EthClient) error {
		toppingAmount, err := faucet.GetToppingAmount(ctx, client)
		if err != nil {
			return err
		}

		minTopping, err := faucet.MinTopping(ctx, client)
		if err != nil {
			return err
		}

		minimum := new(big.Int).Sub(big.NewInt(100), minTopping)
		minimum.Mul(minimum, toppingAmount)
		minimum.Quo(minimum, big.NewInt(100))

		result = threshold{minimum: minimum, toppingAmount: toppingAmount}
		return nil
	})
	if err != nil {
		return threshold{}, err
	}

	if gas := a.factory.Registry().GasEstimate(chainID); gas.Cmp(result.minimum) > 0 {
		result.minimum = gas
	}

	return result, nil
}

// EnsureBalance makes sure account can pay for one claim on the chain. Every
// step is safe to repeat, and within the throttle window no new top-up is
// attempted.
func (a *Assurance) EnsureBalance(ctx context.Context, chainID int64, account common.Address) (Result, error) {
	result, err := a.ensureBalance(ctx, chainID, account)
	outcome := string(result.Outcome)
	if err != nil {
		outcome = "failed"
	}

	prometheus.Inc(internalcommon.FaucetTopupTotal, strconv.FormatInt(chainID, 10), outcome)
	return result, err
}

func (a *Assurance) ensureBalance(ctx context.Context, chainID int64, account common.Address) (Result, error) {
	faucetAddress, err := a.factory.Registry().ContractAddress(chainID, config.ContractFaucet)
	if err != nil {
		return Result{}, err
	}

	faucet, err := faucetcontract.New(faucetAddress)
	if err != nil {
		return Result{}, err
	}

	limit, err := a.threshold(ctx, chainID, faucet)
	if err != nil {
		return Result{}, err
	}

	balance, err := a.balance(ctx, chainID, account)
	if err != nil {
		return Result{}, err
	}

	sufficient := balance.Cmp(limit.minimum) >= 0

	throttled, err := a.throttled(ctx, chainID)
	if err != nil {
		return Result{}, err
	}

	if throttled {
		return Result{Outcome: OutcomeThrottled, Sufficient: sufficient}, nil
	}

	if sufficient {
		a.stamp(ctx, chainID)
		return Result{Outcome: OutcomeSufficient, Sufficient: true}, nil
	}

	var canTop bool
	err = a.factory.Execute(ctx, chainID, "canTop", func(ctx context.Context, client eth.EthClient) error {
		var err error
		canTop, err = faucet.CanTop(ctx, client, account)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if !canTop {
		return Result{Outcome: OutcomeIneligible}, nil
	}

	err = a.topOnChain(ctx, chainID, faucet, account, balance, limit.toppingAmount)
	if err == nil {
		a.stamp(ctx, chainID)
		return Result{Outcome: OutcomeToppedOnChain, Sufficient: true}, nil
	}

	xcontext.Logger(ctx).Warnf("Cannot top up %s on chain %d, fallback to backend: %v", account.Hex(), chainID, err)
	if err := a.topByBackend(ctx, chainID, account); err != nil {
		return Result{}, err
	}

	a.stamp(ctx, chainID)
	return Result{Outcome: OutcomeToppedByBackend, Sufficient: true}, nil
}

func (a *Assurance) topOnChain(
	ctx context.Context,
	chainID int64,
	faucet *faucetcontract.Faucet,
	account common.Address,
	balance, toppingAmount *big.Int,
) error {
	if a.submitter == nil {
		return errors.New("no signer")
	}

	data, err := faucet.PackTopWallet(account)
	if err != nil {
		return err
	}

	to := faucet.Address()
	msg := ethereum.CallMsg{From: a.submitter.Signer().Address(), To: &to, Data: data}

	var gasCost *big.Int
	err = a.factory.Execute(ctx, chainID, "estimateTopWallet", func(ctx context.Context, client eth.EthClient) error {
		gas, err := client.EstimateGas(ctx, msg)
		if err != nil {
			return err
		}

		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}

		gasCost = new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
		return nil
	})
	if err != nil {
		return err
	}

	if gasCost.Cmp(toppingAmount) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrGasExceedsTopping, gasCost, toppingAmount)
	}

	if balance.Cmp(gasCost) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrCannotAffordGas, balance, gasCost)
	}

	_, err = a.submitter.SubmitAndWait(ctx, chainID, blockchain.Call{
		Method: "topWallet",
		To:     to,
		Data:   data,
	}, nil)
	return err
}

func (a *Assurance) topByBackend(ctx context.Context, chainID int64, account common.Address) error {
	if a.backend == nil {
		return fmt.Errorf("%w: no backend configured", ErrTopupFailed)
	}

	resp, err := a.backend.New("/verify/topWallet").
		Body(api.JSON{"chainId": chainID, "account": account.Hex()}).
		POST(ctx, api.OAuth2("Bearer", xcontext.Configs(ctx).Faucet.BackendToken))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTopupFailed, err)
	}

	if resp.Code != http.StatusOK {
		return fmt.Errorf("%w: backend responded %d %s", ErrTopupFailed, resp.Code, string(resp.RawBody))
	}

	return nil
}

// CheckBalanceWithRetry runs EnsureBalance until the account can pay for a
// claim. It returns false when every attempt failed.
func (a *Assurance) CheckBalanceWithRetry(ctx context.Context, chainID int64, account common.Address) (bool, error) {
	cfg := xcontext.Configs(ctx).Faucet
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := a.EnsureBalance(ctx, chainID, account)
		if err != nil {
			if errors.Is(err, config.ErrMisconfigured) {
				return false, err
			}

			xcontext.Logger(ctx).Warnf("Attempt %d of balance assurance for %s on chain %d failed: %v",
				attempt, account.Hex(), chainID, err)
		} else if result.Sufficient {
			return true, nil
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(cfg.RetryDelay):
			}
		}
	}

	return false, nil
}
