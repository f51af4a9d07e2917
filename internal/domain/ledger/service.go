package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	internalcommon "github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

// Service exposes the ledger over json-rpc. Every write takes a Request
// signed by its caller as the first parameter.
type Service struct {
	rootCtx context.Context
	ledger  *Ledger
}

// NewService serves ledger with the configs, logger and database of ctx.
func NewService(ctx context.Context, ledger *Ledger) *Service {
	return &Service{rootCtx: ctx, ledger: ledger}
}

type ClaimResult struct {
	Success     bool   `json:"success"`
	BlockNumber uint64 `json:"blockNumber"`
}

func observe(method string) func() {
	start := time.Now()
	return func() {
		prometheus.ObserveSince(internalcommon.LedgerRequestDurationSeconds, start, method)
	}
}

// context keeps the cancellation of the call and takes the values from the
// root context.
func (s *Service) context(ctx context.Context) context.Context {
	ctx = xcontext.WithConfigs(ctx, xcontext.Configs(s.rootCtx))
	ctx = xcontext.WithLogger(ctx, xcontext.Logger(s.rootCtx))
	ctx = xcontext.WithHTTPClient(ctx, xcontext.HTTPClient(s.rootCtx))
	return xcontext.WithDB(ctx, xcontext.DB(s.rootCtx))
}

// authorize returns the caller of method once the request is checked and
// marked as used.
func (s *Service) authorize(
	ctx context.Context, method string, req Request, params ...any,
) (context.Context, common.Address, error) {
	ctx = s.context(ctx)

	signer, hash, err := RecoverRequestSigner(s.ledger.Domain(), method, req, params...)
	if err != nil {
		return ctx, common.Address{}, err
	}

	if signer != req.Caller {
		return ctx, common.Address{}, fmt.Errorf("%w: request of %s is signed by %s",
			ErrUnauthorized, req.Caller.Hex(), signer.Hex())
	}

	if err := s.ledger.consumeRequest(ctx, hash, uint64(req.ValidUntilBlock)); err != nil {
		return ctx, common.Address{}, err
	}

	return ctx, signer, nil
}

func (s *Service) ApplyApp(ctx context.Context, auth Request, req ApplyAppRequest) error {
	defer observe("applyApp")()
	ctx, caller, err := s.authorize(ctx, "applyApp", auth, req)
	if err != nil {
		return err
	}

	return s.ledger.ApplyApp(ctx, caller, req)
}

func (s *Service) Approve(ctx context.Context, auth Request, app common.Address) error {
	defer observe("approve")()
	ctx, caller, err := s.authorize(ctx, "approve", auth, app)
	if err != nil {
		return err
	}

	return s.ledger.Approve(ctx, caller, app)
}

func (s *Service) UpdateAppSettings(
	ctx context.Context,
	auth Request,
	app, receiver common.Address,
	userAndInviterPercentage, userPercentage int,
) error {
	defer observe("updateAppSettings")()
	ctx, caller, err := s.authorize(ctx, "updateAppSettings", auth,
		app, receiver, userAndInviterPercentage, userPercentage)
	if err != nil {
		return err
	}

	return s.ledger.UpdateAppSettings(ctx, caller, app, receiver, userAndInviterPercentage, userPercentage)
}

func (s *Service) ClaimWithSignature(
	ctx context.Context,
	auth Request,
	app, inviter common.Address,
	validUntilBlock hexutil.Uint64,
	signature hexutil.Bytes,
) (ClaimResult, error) {
	defer observe("claimWithSignature")()
	ctx, caller, err := s.authorize(ctx, "claimWithSignature", auth, app, inviter, validUntilBlock, signature)
	if err != nil {
		return ClaimResult{}, err
	}

	ok, err := s.ledger.ClaimWithSignature(ctx, caller, app, inviter, uint64(validUntilBlock), signature)
	if err != nil {
		return ClaimResult{}, err
	}

	return ClaimResult{Success: ok, BlockNumber: s.ledger.BlockNumber()}, nil
}

func (s *Service) AppClaim(
	ctx context.Context,
	auth Request,
	user, inviter common.Address,
	validUntilBlock hexutil.Uint64,
	signature hexutil.Bytes,
) (ClaimResult, error) {
	defer observe("appClaim")()
	ctx, caller, err := s.authorize(ctx, "appClaim", auth, user, inviter, validUntilBlock, signature)
	if err != nil {
		return ClaimResult{}, err
	}

	ok, err := s.ledger.AppClaim(ctx, caller, user, inviter, uint64(validUntilBlock), signature)
	if err != nil {
		return ClaimResult{}, err
	}

	return ClaimResult{Success: ok, BlockNumber: s.ledger.BlockNumber()}, nil
}

func (s *Service) SetRewardAmount(ctx context.Context, auth Request, amount *hexutil.Big) error {
	defer observe("setRewardAmount")()
	ctx, caller, err := s.authorize(ctx, "setRewardAmount", auth, amount)
	if err != nil {
		return err
	}

	return s.ledger.SetRewardAmount(ctx, caller, (*big.Int)(amount))
}

func (s *Service) SetMaxRewardsPerApp(ctx context.Context, auth Request, amount *hexutil.Big) error {
	defer observe("setMaxRewardsPerApp")()
	ctx, caller, err := s.authorize(ctx, "setMaxRewardsPerApp", auth, amount)
	if err != nil {
		return err
	}

	return s.ledger.SetMaxRewardsPerApp(ctx, caller, (*big.Int)(amount))
}

func (s *Service) SetAdmin(ctx context.Context, auth Request, account common.Address, enabled bool) error {
	defer observe("setAdmin")()
	ctx, caller, err := s.authorize(ctx, "setAdmin", auth, account, enabled)
	if err != nil {
		return err
	}

	return s.ledger.SetAdmin(ctx, caller, account, enabled)
}

func (s *Service) Deposit(ctx context.Context, auth Request, amount *hexutil.Big) error {
	defer observe("deposit")()
	ctx, caller, err := s.authorize(ctx, "deposit", auth, amount)
	if err != nil {
		return err
	}

	return s.ledger.Deposit(ctx, caller, (*big.Int)(amount))
}

func (s *Service) GetApp(ctx context.Context, app common.Address) (*AppInfo, error) {
	return s.ledger.GetApp(s.context(ctx), app)
}

func (s *Service) GetAppStats(ctx context.Context, app common.Address) (*AppStats, error) {
	return s.ledger.GetAppStats(s.context(ctx), app)
}

func (s *Service) IsUserRegistered(ctx context.Context, app, user common.Address) (bool, error) {
	return s.ledger.IsUserRegistered(s.context(ctx), app, user)
}

func (s *Service) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	return s.ledger.IsAdmin(s.context(ctx), account)
}

func (s *Service) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(s.ledger.BlockNumber())
}

func (s *Service) Domain() Domain {
	return s.ledger.Domain()
}

func (s *Service) RewardAmount(ctx context.Context) (*hexutil.Big, error) {
	amount, err := s.ledger.RewardAmount(s.context(ctx))
	return (*hexutil.Big)(amount), err
}

func (s *Service) MaxRewardsPerApp(ctx context.Context) (*hexutil.Big, error) {
	amount, err := s.ledger.MaxRewardsPerApp(s.context(ctx))
	return (*hexutil.Big)(amount), err
}

func (s *Service) BalanceOf(ctx context.Context, account common.Address) (*hexutil.Big, error) {
	amount, err := s.ledger.BalanceOf(s.context(ctx), account)
	return (*hexutil.Big)(amount), err
}

func (s *Service) ListClaims(ctx context.Context, app common.Address, offset, limit int) ([]RewardClaimEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	return s.ledger.ListClaims(s.context(ctx), app, offset, limit)
}

func (s *Service) ListEvents(ctx context.Context, kind string) ([]Event, error) {
	return s.ledger.ListEvents(s.context(ctx), kind)
}
