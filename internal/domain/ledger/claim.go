package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	internalcommon "github.com/questx-lab/engagement/internal/common"
	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

type claimRequest struct {
	app             common.Address
	user            common.Address
	inviter         common.Address
	validUntilBlock uint64
	signature       []byte
}

// ClaimWithSignature pays the reward of app to the caller. The signature is
// only checked when the caller has never claimed from this app. Routine
// ineligibility returns false without an error.
func (l *Ledger) ClaimWithSignature(
	ctx context.Context,
	caller, app, inviter common.Address,
	validUntilBlock uint64,
	signature []byte,
) (bool, error) {
	return l.claim(ctx, claimRequest{
		app:             app,
		user:            caller,
		inviter:         inviter,
		validUntilBlock: validUntilBlock,
		signature:       signature,
	})
}

// AppClaim is called by the app itself on behalf of one of its users.
func (l *Ledger) AppClaim(
	ctx context.Context,
	caller, user, inviter common.Address,
	validUntilBlock uint64,
	signature []byte,
) (bool, error) {
	return l.claim(ctx, claimRequest{
		app:             caller,
		user:            user,
		inviter:         inviter,
		validUntilBlock: validUntilBlock,
		signature:       signature,
	})
}

func (l *Ledger) claim(ctx context.Context, req claimRequest) (bool, error) {
	var paid bool
	var result string
	err := l.write(ctx, func(ctx context.Context) error {
		var err error
		result, err = l.doClaim(ctx, req)
		paid = result == "paid"
		return err
	})

	if err != nil {
		result = "error"
		xcontext.Logger(ctx).Warnf("Claim of %s for app %s failed: %v", req.user.Hex(), req.app.Hex(), err)
	}

	prometheus.Inc(internalcommon.LedgerClaimTotal, result)
	return paid && err == nil, err
}

// doClaim returns the result of the claim: paid, or the reason of the soft
// failure.
func (l *Ledger) doClaim(ctx context.Context, req claimRequest) (string, error) {
	app, err := l.getApp(ctx, req.app)
	if errors.Is(err, ErrAppNotRegistered) {
		return "not_registered", nil
	}
	if err != nil {
		return "", err
	}

	if !app.IsRegistered || !app.IsApproved {
		return "not_approved", nil
	}

	root, err := l.resolver.ResolveRoot(ctx, l.cfg.ChainID, req.user)
	if err != nil {
		return "", err
	}

	if !root.IsWhitelisted {
		return "not_whitelisted", nil
	}

	registration, err := l.userRegistrationRepo.Get(ctx, app.Address, req.user.Hex())
	if err != nil {
		return "", err
	}

	if !registration.IsRegistered {
		if err := l.verifyClaimSignature(app, req); err != nil {
			return "", err
		}

		registration.IsRegistered = true
		if err := l.userRegistrationRepo.Upsert(ctx, registration); err != nil {
			return "", err
		}
	}

	cooldown := registration
	if root.Address != req.user {
		cooldown, err = l.userRegistrationRepo.Get(ctx, app.Address, root.Address.Hex())
		if err != nil {
			return "", err
		}
	}

	now := l.clock.Now()
	if cooldown.LastClaimAt.Valid && now.Sub(cooldown.LastClaimAt.Time) < l.cfg.ClaimCooldown {
		return "cooldown", nil
	}

	rewardAmount, err := l.RewardAmount(ctx)
	if err != nil {
		return "", err
	}

	maxRewards, err := l.MaxRewardsPerApp(ctx)
	if err != nil {
		return "", err
	}

	reset := now.Sub(app.LastResetAt) > l.cfg.ResetWindow
	if reset {
		app.TotalRewardsClaimed = entity.NewBigInt(nil)
		app.LastResetAt = now
	}

	total := new(big.Int).Add(app.TotalRewardsClaimed.Big(), rewardAmount)
	if total.Cmp(maxRewards) > 0 {
		return "cap_reached", nil
	}

	if now.Sub(app.RegisteredAt) > l.cfg.AppExpiration {
		return "", ErrAppExpired
	}

	if reset {
		if err := l.appStatsRepo.Upsert(ctx, &entity.AppStats{AppAddress: app.Address}); err != nil {
			return "", err
		}
	}

	split := CalculateSplit(rewardAmount, app.UserAndInviterPercentage, app.UserPercentage)
	if err := l.payout(ctx, app, req.user, root.Address, req.inviter, split); err != nil {
		return "", err
	}

	app.TotalRewardsClaimed = entity.NewBigInt(total)
	if err := l.appRepo.Upsert(ctx, app); err != nil {
		return "", err
	}

	cooldown.LastClaimAt = sql.NullTime{Time: now, Valid: true}
	if err := l.userRegistrationRepo.Upsert(ctx, cooldown); err != nil {
		return "", err
	}

	return "paid", nil
}

func (l *Ledger) verifyClaimSignature(app *entity.App, req claimRequest) error {
	current := l.clock.BlockNumber()
	if req.validUntilBlock < current {
		return ErrSignatureExpired
	}

	if req.validUntilBlock > current+l.cfg.MaxFutureBlocks {
		return ErrSignatureTooFarInFuture
	}

	signer, err := RecoverClaimSigner(l.domain, ClaimAuthorization{
		App:             req.app,
		Inviter:         req.inviter,
		ValidUntilBlock: req.validUntilBlock,
		Description:     app.Description,
	}, req.signature)
	if err != nil {
		return err
	}

	if signer != req.user {
		return fmt.Errorf("%w: signed by %s", ErrInvalidSignature, signer.Hex())
	}

	return nil
}

// payout moves the split from the pool and records the claim.
func (l *Ledger) payout(
	ctx context.Context, app *entity.App, user, root, inviter common.Address, split Split,
) error {
	pay, retained := split, big.NewInt(0)
	if inviter == (common.Address{}) {
		var moved bool
		if pay, moved = split.withoutInviter(l.cfg.ZeroInviterPolicy); !moved {
			pay = Split{App: split.App, User: split.User, Inviter: big.NewInt(0)}
			retained = split.Inviter
		}
	}

	poolAddress := l.Address().Hex()
	pool, err := l.tokenBalanceRepo.Get(ctx, poolAddress)
	if err != nil {
		return err
	}

	if pool.Cmp(pay.Total()) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientPool, pool, pay.Total())
	}

	if err := l.tokenBalanceRepo.Set(ctx, poolAddress, pool.Sub(pool, pay.Total())); err != nil {
		return err
	}

	if err := l.credit(ctx, app.RewardReceiver, pay.App); err != nil {
		return err
	}

	if err := l.credit(ctx, root.Hex(), pay.User); err != nil {
		return err
	}

	if err := l.credit(ctx, inviter.Hex(), pay.Inviter); err != nil {
		return err
	}

	stats, err := l.appStatsRepo.Get(ctx, app.Address)
	if err != nil {
		return err
	}

	stats.NumberOfRewards++
	stats.TotalAppRewards = entity.NewBigInt(new(big.Int).Add(stats.TotalAppRewards.Big(), pay.App))
	stats.TotalUserRewards = entity.NewBigInt(new(big.Int).Add(stats.TotalUserRewards.Big(), pay.User))
	stats.TotalInviterRewards = entity.NewBigInt(new(big.Int).Add(stats.TotalInviterRewards.Big(), pay.Inviter))
	stats.TotalRetainedRewards = entity.NewBigInt(new(big.Int).Add(stats.TotalRetainedRewards.Big(), retained))
	if err := l.appStatsRepo.Upsert(ctx, stats); err != nil {
		return err
	}

	if err := l.rewardClaimRepo.Create(ctx, &entity.RewardClaim{
		Base:          entity.Base{ID: uuid.NewString()},
		AppAddress:    app.Address,
		UserAddress:   user.Hex(),
		RootAddress:   root.Hex(),
		Inviter:       inviter.Hex(),
		AppReward:     entity.NewBigInt(pay.App),
		UserReward:    entity.NewBigInt(pay.User),
		InviterReward: entity.NewBigInt(pay.Inviter),
		BlockNumber:   l.clock.BlockNumber(),
	}); err != nil {
		return err
	}

	return l.emit(ctx, entity.LedgerEventRewardClaimed, common.HexToAddress(app.Address), entity.Map{
		"user":            user.Hex(),
		"root":            root.Hex(),
		"inviter":         inviter.Hex(),
		"app_reward":      pay.App.String(),
		"user_reward":     pay.User.String(),
		"inviter_reward":  pay.Inviter.String(),
		"retained_reward": retained.String(),
	})
}

func (l *Ledger) credit(ctx context.Context, account string, amount *big.Int) error {
	if amount.Sign() == 0 || account == (common.Address{}).Hex() {
		return nil
	}

	balance, err := l.tokenBalanceRepo.Get(ctx, account)
	if err != nil {
		return err
	}

	return l.tokenBalanceRepo.Set(ctx, account, balance.Add(balance, amount))
}
