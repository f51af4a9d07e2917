package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/internal/domain/identity"
	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/internal/repository"
	"github.com/questx-lab/engagement/pkg/enum"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm"
)

const (
	settingRewardAmount     = "reward_amount"
	settingMaxRewardsPerApp = "max_rewards_per_app"
	settingGenesis          = "genesis"
	settingAdminPrefix      = "admin:"
	settingRequestPrefix    = "request:"
)

// Ledger is the source of truth of app registrations and reward payouts.
// Every write runs in one database transaction and writes are serialized.
type Ledger struct {
	mutex sync.Mutex

	cfg      config.LedgerConfigs
	domain   Domain
	clock    Clock
	resolver identity.Resolver

	appRepo              repository.AppRepository
	appStatsRepo         repository.AppStatsRepository
	userRegistrationRepo repository.UserRegistrationRepository
	rewardClaimRepo      repository.RewardClaimRepository
	ledgerEventRepo      repository.LedgerEventRepository
	ledgerSettingRepo    repository.LedgerSettingRepository
	tokenBalanceRepo     repository.TokenBalanceRepository
}

func NewLedger(
	cfg config.LedgerConfigs,
	clock Clock,
	resolver identity.Resolver,
	appRepo repository.AppRepository,
	appStatsRepo repository.AppStatsRepository,
	userRegistrationRepo repository.UserRegistrationRepository,
	rewardClaimRepo repository.RewardClaimRepository,
	ledgerEventRepo repository.LedgerEventRepository,
	ledgerSettingRepo repository.LedgerSettingRepository,
	tokenBalanceRepo repository.TokenBalanceRepository,
) (*Ledger, error) {
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("%w: invalid ledger address %q", config.ErrMisconfigured, cfg.Address)
	}

	return &Ledger{
		cfg: cfg,
		domain: Domain{
			Name:              cfg.Name,
			Version:           cfg.Version,
			ChainID:           cfg.ChainID,
			VerifyingContract: common.HexToAddress(cfg.Address),
		},
		clock:                clock,
		resolver:             resolver,
		appRepo:              appRepo,
		appStatsRepo:         appStatsRepo,
		userRegistrationRepo: userRegistrationRepo,
		rewardClaimRepo:      rewardClaimRepo,
		ledgerEventRepo:      ledgerEventRepo,
		ledgerSettingRepo:    ledgerSettingRepo,
		tokenBalanceRepo:     tokenBalanceRepo,
	}, nil
}

// LoadGenesis returns the genesis time of the ledger, storing now on the first
// start.
func LoadGenesis(ctx context.Context, ledgerSettingRepo repository.LedgerSettingRepository, now time.Time) (time.Time, error) {
	value, ok, err := ledgerSettingRepo.Get(ctx, settingGenesis)
	if err != nil {
		return time.Time{}, err
	}

	if ok {
		return time.Parse(time.RFC3339Nano, value)
	}

	if err := ledgerSettingRepo.Set(ctx, settingGenesis, now.UTC().Format(time.RFC3339Nano)); err != nil {
		return time.Time{}, err
	}

	return now, nil
}

// Setup seeds the admin and the reward settings from the configuration when
// they have never been set.
func (l *Ledger) Setup(ctx context.Context) error {
	return l.write(ctx, func(ctx context.Context) error {
		admins, err := l.ledgerSettingRepo.GetByPrefix(ctx, settingAdminPrefix)
		if err != nil {
			return err
		}

		if len(admins) == 0 && l.cfg.Admin != "" {
			if !common.IsHexAddress(l.cfg.Admin) {
				return fmt.Errorf("%w: invalid admin address %q", config.ErrMisconfigured, l.cfg.Admin)
			}

			admin := common.HexToAddress(l.cfg.Admin)
			if err := l.ledgerSettingRepo.Set(ctx, settingAdminPrefix+admin.Hex(), "1"); err != nil {
				return err
			}

			xcontext.Logger(ctx).Infof("Ledger admin is set to %s", admin.Hex())
		}

		seeds := map[string]string{
			settingRewardAmount:     l.cfg.RewardAmount,
			settingMaxRewardsPerApp: l.cfg.MaxRewardsPerApp,
		}

		for key, value := range seeds {
			if value == "" {
				continue
			}

			if _, ok := new(big.Int).SetString(value, 10); !ok {
				return fmt.Errorf("%w: invalid %s %q", config.ErrMisconfigured, key, value)
			}

			_, ok, err := l.ledgerSettingRepo.Get(ctx, key)
			if err != nil {
				return err
			}

			if !ok {
				if err := l.ledgerSettingRepo.Set(ctx, key, value); err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (l *Ledger) Domain() Domain {
	return l.domain
}

func (l *Ledger) Address() common.Address {
	return l.domain.VerifyingContract
}

func (l *Ledger) BlockNumber() uint64 {
	return l.clock.BlockNumber()
}

// write runs fn in one transaction. The transaction is rolled back when fn
// returns an error.
func (l *Ledger) write(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := fn(ctx); err != nil {
		return err
	}

	return xcontext.WithCommitDBTransaction(ctx)
}

// consumeRequest checks the validity window of a signed request and marks its
// hash as used.
func (l *Ledger) consumeRequest(ctx context.Context, hash common.Hash, validUntilBlock uint64) error {
	current := l.clock.BlockNumber()
	if validUntilBlock < current {
		return ErrSignatureExpired
	}

	if validUntilBlock > current+l.cfg.MaxFutureBlocks {
		return ErrSignatureTooFarInFuture
	}

	return l.write(ctx, func(ctx context.Context) error {
		key := settingRequestPrefix + hash.Hex()
		_, used, err := l.ledgerSettingRepo.Get(ctx, key)
		if err != nil {
			return err
		}

		if used {
			return fmt.Errorf("%w: %s", ErrRequestReplayed, hash.Hex())
		}

		return l.ledgerSettingRepo.Set(ctx, key, strconv.FormatUint(validUntilBlock, 10))
	})
}

func (l *Ledger) isAdmin(ctx context.Context, account common.Address) (bool, error) {
	_, ok, err := l.ledgerSettingRepo.Get(ctx, settingAdminPrefix+account.Hex())
	return ok, err
}

func (l *Ledger) requireAdmin(ctx context.Context, caller common.Address) error {
	ok, err := l.isAdmin(ctx, caller)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s is not admin", ErrUnauthorized, caller.Hex())
	}

	return nil
}

func (l *Ledger) getApp(ctx context.Context, app common.Address) (*entity.App, error) {
	record, err := l.appRepo.GetByAddress(ctx, app.Hex())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppNotRegistered
		}

		return nil, err
	}

	return record, nil
}

func (l *Ledger) getAmountSetting(ctx context.Context, key string) (*big.Int, error) {
	value, ok, err := l.ledgerSettingRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if !ok {
		return big.NewInt(0), nil
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s setting %q", key, value)
	}

	return amount, nil
}

func (l *Ledger) emit(
	ctx context.Context, kind entity.LedgerEventKind, app common.Address, data entity.Map,
) error {
	return l.ledgerEventRepo.Create(ctx, &entity.LedgerEvent{
		Base:        entity.Base{ID: uuid.NewString()},
		Kind:        kind,
		AppAddress:  app.Hex(),
		BlockNumber: l.clock.BlockNumber(),
		Data:        data,
	})
}

type ApplyAppRequest struct {
	App common.Address `json:"app"`

	// Owner is designated by the app itself, zero keeps the current owner or
	// makes the app its own owner on the first application.
	Owner                    common.Address `json:"owner"`
	RewardReceiver           common.Address `json:"rewardReceiver"`
	UserAndInviterPercentage int            `json:"userAndInviterPercentage"`
	UserPercentage           int            `json:"userPercentage"`
	Description              string         `json:"description"`
	URL                      string         `json:"url"`
	Email                    string         `json:"email"`
}

func (l *Ledger) validateSettings(receiver common.Address, userAndInviterPercentage, userPercentage int) error {
	if receiver == (common.Address{}) {
		return ErrInvalidReceiver
	}

	if !validPercentage(userAndInviterPercentage) || !validPercentage(userPercentage) {
		return fmt.Errorf("%w: %d/%d", ErrInvalidPercentage, userAndInviterPercentage, userPercentage)
	}

	return nil
}

// ApplyApp registers the app or updates its registration. The first
// application must come from the app address, which designates the owner.
// Later applications are accepted from the owner or the app, and only the app
// can move the ownership. Every application requires a new approval.
func (l *Ledger) ApplyApp(ctx context.Context, caller common.Address, req ApplyAppRequest) error {
	if req.App == (common.Address{}) {
		return ErrInvalidApp
	}

	if err := l.validateSettings(req.RewardReceiver, req.UserAndInviterPercentage, req.UserPercentage); err != nil {
		return err
	}

	if n := len(req.Description); n < l.cfg.MinDescription || n > l.cfg.MaxDescription {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrInvalidDescription, n, l.cfg.MinDescription, l.cfg.MaxDescription)
	}

	return l.write(ctx, func(ctx context.Context) error {
		now := l.clock.Now()

		app, err := l.getApp(ctx, req.App)
		switch {
		case errors.Is(err, ErrAppNotRegistered):
			if caller != req.App {
				return fmt.Errorf("%w: first application of %s must come from the app",
					ErrUnauthorized, req.App.Hex())
			}

			app = &entity.App{
				Address:     req.App.Hex(),
				Owner:       req.App.Hex(),
				LastResetAt: now,
			}

		case err != nil:
			return err

		case app.Owner != caller.Hex() && app.Address != caller.Hex():
			return fmt.Errorf("%w: %s is not owner of %s", ErrUnauthorized, caller.Hex(), req.App.Hex())
		}

		if req.Owner != (common.Address{}) && req.Owner.Hex() != app.Owner {
			if caller != req.App {
				return fmt.Errorf("%w: only %s can change its owner", ErrUnauthorized, req.App.Hex())
			}

			app.Owner = req.Owner.Hex()
		}

		app.RewardReceiver = req.RewardReceiver.Hex()
		app.UserAndInviterPercentage = req.UserAndInviterPercentage
		app.UserPercentage = req.UserPercentage
		app.Description = req.Description
		app.URL = req.URL
		app.Email = req.Email
		app.IsRegistered = true
		app.IsApproved = false
		app.RegisteredAt = now

		if err := l.appRepo.Upsert(ctx, app); err != nil {
			return err
		}

		return l.emit(ctx, entity.LedgerEventAppApplied, req.App, entity.Map{
			"owner":                    app.Owner,
			"reward_receiver":          app.RewardReceiver,
			"user_and_inviter_percent": app.UserAndInviterPercentage,
			"user_percent":             app.UserPercentage,
			"description":              app.Description,
			"url":                      app.URL,
			"email":                    app.Email,
		})
	})
}

func (l *Ledger) Approve(ctx context.Context, caller, app common.Address) error {
	return l.write(ctx, func(ctx context.Context) error {
		if err := l.requireAdmin(ctx, caller); err != nil {
			return err
		}

		record, err := l.getApp(ctx, app)
		if err != nil {
			return err
		}

		if !record.IsRegistered {
			return ErrAppNotRegistered
		}

		record.IsApproved = true
		if err := l.appRepo.Upsert(ctx, record); err != nil {
			return err
		}

		return l.emit(ctx, entity.LedgerEventAppApproved, app, entity.Map{"admin": caller.Hex()})
	})
}

// UpdateAppSettings changes the payout settings without a new approval.
func (l *Ledger) UpdateAppSettings(
	ctx context.Context,
	caller, app, receiver common.Address,
	userAndInviterPercentage, userPercentage int,
) error {
	if err := l.validateSettings(receiver, userAndInviterPercentage, userPercentage); err != nil {
		return err
	}

	return l.write(ctx, func(ctx context.Context) error {
		record, err := l.getApp(ctx, app)
		if err != nil {
			return err
		}

		if record.Owner != caller.Hex() {
			return fmt.Errorf("%w: %s is not owner of %s", ErrUnauthorized, caller.Hex(), app.Hex())
		}

		record.RewardReceiver = receiver.Hex()
		record.UserAndInviterPercentage = userAndInviterPercentage
		record.UserPercentage = userPercentage
		if err := l.appRepo.Upsert(ctx, record); err != nil {
			return err
		}

		return l.emit(ctx, entity.LedgerEventAppSettingsUpdated, app, entity.Map{
			"reward_receiver":          record.RewardReceiver,
			"user_and_inviter_percent": userAndInviterPercentage,
			"user_percent":             userPercentage,
		})
	})
}

func (l *Ledger) setAmount(ctx context.Context, caller common.Address, key string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	return l.write(ctx, func(ctx context.Context) error {
		if err := l.requireAdmin(ctx, caller); err != nil {
			return err
		}

		if err := l.ledgerSettingRepo.Set(ctx, key, amount.String()); err != nil {
			return err
		}

		return l.emit(ctx, entity.LedgerEventSettingsUpdated, common.Address{}, entity.Map{
			"key":   key,
			"value": amount.String(),
		})
	})
}

func (l *Ledger) SetRewardAmount(ctx context.Context, caller common.Address, amount *big.Int) error {
	return l.setAmount(ctx, caller, settingRewardAmount, amount)
}

func (l *Ledger) SetMaxRewardsPerApp(ctx context.Context, caller common.Address, amount *big.Int) error {
	return l.setAmount(ctx, caller, settingMaxRewardsPerApp, amount)
}

// SetAdmin grants or revokes the admin role. An admin cannot revoke itself.
func (l *Ledger) SetAdmin(ctx context.Context, caller, account common.Address, enabled bool) error {
	return l.write(ctx, func(ctx context.Context) error {
		if err := l.requireAdmin(ctx, caller); err != nil {
			return err
		}

		key := settingAdminPrefix + account.Hex()
		if enabled {
			if err := l.ledgerSettingRepo.Set(ctx, key, "1"); err != nil {
				return err
			}
		} else {
			if account == caller {
				return fmt.Errorf("%w: admin cannot revoke itself", ErrUnauthorized)
			}

			if err := l.ledgerSettingRepo.Delete(ctx, key); err != nil {
				return err
			}
		}

		return l.emit(ctx, entity.LedgerEventSettingsUpdated, common.Address{}, entity.Map{
			"key":   key,
			"value": enabled,
		})
	})
}

// Deposit funds the reward pool.
func (l *Ledger) Deposit(ctx context.Context, caller common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	return l.write(ctx, func(ctx context.Context) error {
		if err := l.requireAdmin(ctx, caller); err != nil {
			return err
		}

		pool, err := l.tokenBalanceRepo.Get(ctx, l.Address().Hex())
		if err != nil {
			return err
		}

		if err := l.tokenBalanceRepo.Set(ctx, l.Address().Hex(), pool.Add(pool, amount)); err != nil {
			return err
		}

		return l.emit(ctx, entity.LedgerEventDeposited, common.Address{}, entity.Map{
			"from":   caller.Hex(),
			"amount": amount.String(),
		})
	})
}

type AppInfo struct {
	Address                  common.Address `json:"address"`
	Owner                    common.Address `json:"owner"`
	RewardReceiver           common.Address `json:"rewardReceiver"`
	UserAndInviterPercentage int            `json:"userAndInviterPercentage"`
	UserPercentage           int            `json:"userPercentage"`
	Description              string         `json:"description"`
	URL                      string         `json:"url"`
	Email                    string         `json:"email"`
	IsRegistered             bool           `json:"isRegistered"`
	IsApproved               bool           `json:"isApproved"`
	TotalRewardsClaimed      *big.Int       `json:"totalRewardsClaimed"`
	RegisteredAt             time.Time      `json:"registeredAt"`
	LastResetAt              time.Time      `json:"lastResetAt"`
}

func appInfo(app *entity.App) *AppInfo {
	return &AppInfo{
		Address:                  common.HexToAddress(app.Address),
		Owner:                    common.HexToAddress(app.Owner),
		RewardReceiver:           common.HexToAddress(app.RewardReceiver),
		UserAndInviterPercentage: app.UserAndInviterPercentage,
		UserPercentage:           app.UserPercentage,
		Description:              app.Description,
		URL:                      app.URL,
		Email:                    app.Email,
		IsRegistered:             app.IsRegistered,
		IsApproved:               app.IsApproved,
		TotalRewardsClaimed:      app.TotalRewardsClaimed.Big(),
		RegisteredAt:             app.RegisteredAt,
		LastResetAt:              app.LastResetAt,
	}
}

type AppStats struct {
	NumberOfRewards      uint64   `json:"numberOfRewards"`
	TotalAppRewards      *big.Int `json:"totalAppRewards"`
	TotalUserRewards     *big.Int `json:"totalUserRewards"`
	TotalInviterRewards  *big.Int `json:"totalInviterRewards"`
	TotalRetainedRewards *big.Int `json:"totalRetainedRewards"`
}

type Event struct {
	Kind        entity.LedgerEventKind `json:"kind"`
	App         common.Address         `json:"app"`
	BlockNumber uint64                 `json:"blockNumber"`
	Data        map[string]any         `json:"data"`
}

type RewardClaimEvent struct {
	App           common.Address `json:"app"`
	User          common.Address `json:"user"`
	Root          common.Address `json:"root"`
	Inviter       common.Address `json:"inviter"`
	AppReward     *big.Int       `json:"appReward"`
	UserReward    *big.Int       `json:"userReward"`
	InviterReward *big.Int       `json:"inviterReward"`
	BlockNumber   uint64         `json:"blockNumber"`
}

func (l *Ledger) GetApp(ctx context.Context, app common.Address) (*AppInfo, error) {
	record, err := l.getApp(ctx, app)
	if err != nil {
		return nil, err
	}

	return appInfo(record), nil
}

func (l *Ledger) GetAppStats(ctx context.Context, app common.Address) (*AppStats, error) {
	stats, err := l.appStatsRepo.Get(ctx, app.Hex())
	if err != nil {
		return nil, err
	}

	return &AppStats{
		NumberOfRewards:      stats.NumberOfRewards,
		TotalAppRewards:      stats.TotalAppRewards.Big(),
		TotalUserRewards:     stats.TotalUserRewards.Big(),
		TotalInviterRewards:  stats.TotalInviterRewards.Big(),
		TotalRetainedRewards: stats.TotalRetainedRewards.Big(),
	}, nil
}

func (l *Ledger) IsUserRegistered(ctx context.Context, app, user common.Address) (bool, error) {
	registration, err := l.userRegistrationRepo.Get(ctx, app.Hex(), user.Hex())
	if err != nil {
		return false, err
	}

	return registration.IsRegistered, nil
}

func (l *Ledger) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	return l.isAdmin(ctx, account)
}

func (l *Ledger) RewardAmount(ctx context.Context) (*big.Int, error) {
	return l.getAmountSetting(ctx, settingRewardAmount)
}

func (l *Ledger) MaxRewardsPerApp(ctx context.Context) (*big.Int, error) {
	return l.getAmountSetting(ctx, settingMaxRewardsPerApp)
}

func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return l.tokenBalanceRepo.Get(ctx, account.Hex())
}

func (l *Ledger) ListClaims(ctx context.Context, app common.Address, offset, limit int) ([]RewardClaimEvent, error) {
	claims, err := l.rewardClaimRepo.GetByApp(ctx, app.Hex(), offset, limit)
	if err != nil {
		return nil, err
	}

	result := make([]RewardClaimEvent, 0, len(claims))
	for _, c := range claims {
		result = append(result, RewardClaimEvent{
			App:           common.HexToAddress(c.AppAddress),
			User:          common.HexToAddress(c.UserAddress),
			Root:          common.HexToAddress(c.RootAddress),
			Inviter:       common.HexToAddress(c.Inviter),
			AppReward:     c.AppReward.Big(),
			UserReward:    c.UserReward.Big(),
			InviterReward: c.InviterReward.Big(),
			BlockNumber:   c.BlockNumber,
		})
	}

	return result, nil
}

// ListEvents returns the events of one kind in the order they were emitted.
func (l *Ledger) ListEvents(ctx context.Context, kind string) ([]Event, error) {
	k, err := enum.ToEnum[entity.LedgerEventKind](kind)
	if err != nil {
		return nil, fmt.Errorf("%w %q, expected one of %v",
			ErrUnknownEventKind, kind, enum.Values[entity.LedgerEventKind]())
	}

	events, err := l.ledgerEventRepo.GetByKind(ctx, k)
	if err != nil {
		return nil, err
	}

	result := make([]Event, 0, len(events))
	for _, e := range events {
		result = append(result, Event{
			Kind:        e.Kind,
			App:         common.HexToAddress(e.AppAddress),
			BlockNumber: e.BlockNumber,
			Data:        e.Data,
		})
	}

	return result, nil
}
