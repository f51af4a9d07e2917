package ledger

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/questx-lab/engagement/internal/domain/identity"
	"github.com/questx-lab/engagement/internal/repository"
	"github.com/questx-lab/engagement/pkg/testutil"
	"github.com/stretchr/testify/require"
)

var (
	ledgerAddress = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	admin         = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	owner         = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	appAddress    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	receiver      = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	inviter       = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	stranger      = common.HexToAddress("0x0000000000000000000000000000000000000099")

	description = strings.Repeat("Engagement rewards for daily active users. ", 2)
	genesis     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

type testLedger struct {
	*Ledger
	ctx      context.Context
	clock    *ManualClock
	resolver *identity.StaticResolver
}

func newTestLedger(t *testing.T, deposit int64) *testLedger {
	ctx := testutil.MockContext()

	cfg := testutil.MockConfigs().Ledger
	cfg.Address = ledgerAddress.Hex()
	cfg.Admin = admin.Hex()
	cfg.RewardAmount = "10"
	cfg.MaxRewardsPerApp = "1000"

	clock := NewManualClock(genesis, 1000, cfg.BlockTime)
	resolver := identity.NewStaticResolver()

	l, err := NewLedger(cfg, clock, resolver,
		repository.NewAppRepository(),
		repository.NewAppStatsRepository(),
		repository.NewUserRegistrationRepository(),
		repository.NewRewardClaimRepository(),
		repository.NewLedgerEventRepository(),
		repository.NewLedgerSettingRepository(),
		repository.NewTokenBalanceRepository(),
	)
	require.NoError(t, err)
	require.NoError(t, l.Setup(ctx))

	if deposit > 0 {
		require.NoError(t, l.Deposit(ctx, admin, big.NewInt(deposit)))
	}

	return &testLedger{Ledger: l, ctx: ctx, clock: clock, resolver: resolver}
}

// registerApp applies from the app, designating owner, and approves it with
// an 80/75 split.
func (tl *testLedger) registerApp(t *testing.T) {
	require.NoError(t, tl.ApplyApp(tl.ctx, appAddress, ApplyAppRequest{
		App:                      appAddress,
		Owner:                    owner,
		RewardReceiver:           receiver,
		UserAndInviterPercentage: 80,
		UserPercentage:           75,
		Description:              description,
		URL:                      "https://app.example",
		Email:                    "team@app.example",
	}))
	require.NoError(t, tl.Approve(tl.ctx, admin, appAddress))
}

func (tl *testLedger) newUser(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	user := crypto.PubkeyToAddress(key.PublicKey)
	tl.resolver.Whitelist(user, user)
	return key, user
}

func (tl *testLedger) sign(t *testing.T, key *ecdsa.PrivateKey, validUntilBlock uint64) []byte {
	sig, err := SignClaim(key, tl.Domain(), ClaimAuthorization{
		App:             appAddress,
		Inviter:         inviter,
		ValidUntilBlock: validUntilBlock,
		Description:     description,
	})
	require.NoError(t, err)
	return sig
}

func (tl *testLedger) balance(t *testing.T, account common.Address) int64 {
	balance, err := tl.BalanceOf(tl.ctx, account)
	require.NoError(t, err)
	return balance.Int64()
}

func TestNewLedger_InvalidAddress(t *testing.T) {
	cfg := testutil.MockConfigs().Ledger
	cfg.Address = "not-an-address"

	_, err := NewLedger(cfg, NewManualClock(genesis, 0, time.Second), identity.AllowAllResolver{},
		nil, nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestLedger_Setup(t *testing.T) {
	tl := newTestLedger(t, 0)

	ok, err := tl.IsAdmin(tl.ctx, admin)
	require.NoError(t, err)
	require.True(t, ok)

	amount, err := tl.RewardAmount(tl.ctx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10), amount)

	// Later setups never overwrite settings changed by the admin.
	require.NoError(t, tl.SetRewardAmount(tl.ctx, admin, big.NewInt(20)))
	require.NoError(t, tl.Setup(tl.ctx))

	amount, err = tl.RewardAmount(tl.ctx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(20), amount)
}

func TestLoadGenesis(t *testing.T) {
	ctx := testutil.MockContext()
	repo := repository.NewLedgerSettingRepository()

	first, err := LoadGenesis(ctx, repo, genesis)
	require.NoError(t, err)
	require.True(t, first.Equal(genesis))

	second, err := LoadGenesis(ctx, repo, genesis.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, second.Equal(genesis))
}

func TestLedger_ApplyApp(t *testing.T) {
	tl := newTestLedger(t, 0)
	tl.registerApp(t)

	app, err := tl.GetApp(tl.ctx, appAddress)
	require.NoError(t, err)
	require.Equal(t, owner, app.Owner)
	require.Equal(t, receiver, app.RewardReceiver)
	require.True(t, app.IsRegistered)
	require.True(t, app.IsApproved)

	// Re-applying requires a new approval.
	require.NoError(t, tl.ApplyApp(tl.ctx, appAddress, ApplyAppRequest{
		App:                      appAddress,
		RewardReceiver:           receiver,
		UserAndInviterPercentage: 50,
		UserPercentage:           50,
		Description:              description + " v2",
	}))

	app, err = tl.GetApp(tl.ctx, appAddress)
	require.NoError(t, err)
	require.Equal(t, owner, app.Owner)
	require.Equal(t, 50, app.UserAndInviterPercentage)
	require.False(t, app.IsApproved)
}

func TestLedger_ApplyApp_Invalid(t *testing.T) {
	tl := newTestLedger(t, 0)
	tl.registerApp(t)

	valid := ApplyAppRequest{
		App:                      appAddress,
		RewardReceiver:           receiver,
		UserAndInviterPercentage: 80,
		UserPercentage:           75,
		Description:              description,
	}

	req := valid
	req.Description = "too short"
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidDescription)

	req = valid
	req.Description = strings.Repeat("x", 513)
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidDescription)

	req = valid
	req.UserPercentage = 101
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidPercentage)

	req = valid
	req.UserAndInviterPercentage = -1
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidPercentage)

	req = valid
	req.RewardReceiver = common.Address{}
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidReceiver)

	req = valid
	req.App = common.Address{}
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrInvalidApp)

	require.ErrorIs(t, tl.ApplyApp(tl.ctx, stranger, valid), ErrUnauthorized)
}

func TestLedger_ApplyApp_Ownership(t *testing.T) {
	tl := newTestLedger(t, 0)

	req := ApplyAppRequest{
		App:                      appAddress,
		Owner:                    stranger,
		RewardReceiver:           stranger,
		UserAndInviterPercentage: 80,
		UserPercentage:           75,
		Description:              description,
	}

	// Nobody but the app can register it.
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, stranger, req), ErrUnauthorized)
	_, err := tl.GetApp(tl.ctx, appAddress)
	require.ErrorIs(t, err, ErrAppNotRegistered)

	// Without a designated owner the app owns itself.
	req.Owner = common.Address{}
	require.NoError(t, tl.ApplyApp(tl.ctx, appAddress, req))
	app, err := tl.GetApp(tl.ctx, appAddress)
	require.NoError(t, err)
	require.Equal(t, appAddress, app.Owner)

	req.Owner = owner
	require.NoError(t, tl.ApplyApp(tl.ctx, appAddress, req))
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, stranger, req), ErrUnauthorized)
	require.ErrorIs(t, tl.UpdateAppSettings(tl.ctx, stranger, appAddress, stranger, 10, 10), ErrUnauthorized)

	// The owner cannot hand the app over, the app can.
	req.Owner = stranger
	require.ErrorIs(t, tl.ApplyApp(tl.ctx, owner, req), ErrUnauthorized)
	require.NoError(t, tl.ApplyApp(tl.ctx, appAddress, req))

	app, err = tl.GetApp(tl.ctx, appAddress)
	require.NoError(t, err)
	require.Equal(t, stranger, app.Owner)
	require.ErrorIs(t, tl.UpdateAppSettings(tl.ctx, owner, appAddress, receiver, 10, 10), ErrUnauthorized)
	require.NoError(t, tl.UpdateAppSettings(tl.ctx, stranger, appAddress, receiver, 10, 10))
}

func TestLedger_Authorization(t *testing.T) {
	tl := newTestLedger(t, 0)
	tl.registerApp(t)

	require.ErrorIs(t, tl.Approve(tl.ctx, stranger, appAddress), ErrUnauthorized)
	require.ErrorIs(t, tl.SetRewardAmount(tl.ctx, stranger, big.NewInt(1)), ErrUnauthorized)
	require.ErrorIs(t, tl.SetMaxRewardsPerApp(tl.ctx, owner, big.NewInt(1)), ErrUnauthorized)
	require.ErrorIs(t, tl.Deposit(tl.ctx, stranger, big.NewInt(1)), ErrUnauthorized)
	require.ErrorIs(t, tl.SetAdmin(tl.ctx, stranger, stranger, true), ErrUnauthorized)
	require.ErrorIs(t, tl.SetAdmin(tl.ctx, admin, admin, false), ErrUnauthorized)
	require.ErrorIs(t, tl.UpdateAppSettings(tl.ctx, stranger, appAddress, receiver, 10, 10), ErrUnauthorized)
	require.ErrorIs(t, tl.Approve(tl.ctx, admin, stranger), ErrAppNotRegistered)
	require.ErrorIs(t, tl.SetRewardAmount(tl.ctx, admin, big.NewInt(-1)), ErrInvalidAmount)

	require.NoError(t, tl.SetAdmin(tl.ctx, admin, stranger, true))
	require.NoError(t, tl.SetMaxRewardsPerApp(tl.ctx, stranger, big.NewInt(500)))
	require.NoError(t, tl.SetAdmin(tl.ctx, stranger, admin, false))

	ok, err := tl.IsAdmin(tl.ctx, admin)
	require.NoError(t, err)
	require.False(t, ok)

	maxRewards, err := tl.MaxRewardsPerApp(tl.ctx)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), maxRewards)
}

func TestLedger_UpdateAppSettings(t *testing.T) {
	tl := newTestLedger(t, 0)
	tl.registerApp(t)

	require.NoError(t, tl.UpdateAppSettings(tl.ctx, owner, appAddress, stranger, 60, 40))

	app, err := tl.GetApp(tl.ctx, appAddress)
	require.NoError(t, err)
	require.Equal(t, stranger, app.RewardReceiver)
	require.Equal(t, 60, app.UserAndInviterPercentage)
	require.Equal(t, 40, app.UserPercentage)
	require.True(t, app.IsApproved)
}

func TestLedger_ListEvents(t *testing.T) {
	tl := newTestLedger(t, 100)
	tl.registerApp(t)

	events, err := tl.ListEvents(tl.ctx, "app_approved")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, appAddress, events[0].App)
	require.Equal(t, admin.Hex(), events[0].Data["admin"])

	events, err = tl.ListEvents(tl.ctx, "deposited")
	require.NoError(t, err)
	require.Len(t, events, 1)

	_, err = tl.ListEvents(tl.ctx, "withdrawn")
	require.ErrorIs(t, err, ErrUnknownEventKind)
}
