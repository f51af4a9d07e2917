package repository

import (
	"database/sql"
	"math/big"
	"testing"
	"time"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/testutil"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func TestAppRepository(t *testing.T) {
	ctx := testutil.MockContext()
	repo := NewAppRepository()

	app := &entity.App{
		Address:                  "0xapp",
		Owner:                    "0xowner",
		UserAndInviterPercentage: 80,
		UserPercentage:           75,
		IsRegistered:             true,
		TotalRewardsClaimed:      entity.NewBigInt(big.NewInt(100)),
	}
	require.NoError(t, repo.Upsert(ctx, app))

	app.IsApproved = true
	app.TotalRewardsClaimed = entity.NewBigInt(big.NewInt(200))
	require.NoError(t, repo.Upsert(ctx, app))

	got, err := repo.GetByAddress(ctx, "0xapp")
	require.NoError(t, err)
	require.True(t, got.IsApproved)
	require.Equal(t, int64(200), got.TotalRewardsClaimed.Int64())
	require.Equal(t, 80, got.UserAndInviterPercentage)

	apps, err := repo.GetByOwner(ctx, "0xowner")
	require.NoError(t, err)
	require.Len(t, apps, 1)

	_, err = repo.GetByAddress(ctx, "0xunknown")
	require.Error(t, err)
}

func TestUserRegistrationRepository(t *testing.T) {
	ctx := testutil.MockContext()
	repo := NewUserRegistrationRepository()

	reg, err := repo.Get(ctx, "0xapp", "0xuser")
	require.NoError(t, err)
	require.False(t, reg.IsRegistered)
	require.False(t, reg.LastClaimAt.Valid)

	now := time.Now().UTC().Truncate(time.Second)
	reg.IsRegistered = true
	reg.LastClaimAt = sql.NullTime{Time: now, Valid: true}
	require.NoError(t, repo.Upsert(ctx, reg))

	reg.LastClaimAt = sql.NullTime{Time: now.Add(time.Hour), Valid: true}
	require.NoError(t, repo.Upsert(ctx, reg))

	reg, err = repo.Get(ctx, "0xapp", "0xuser")
	require.NoError(t, err)
	require.True(t, reg.IsRegistered)
	require.True(t, reg.LastClaimAt.Time.Equal(now.Add(time.Hour)))

	count, err := repo.CountRegistered(ctx, "0xapp")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestLedgerSettingRepository(t *testing.T) {
	ctx := testutil.MockContext()
	repo := NewLedgerSettingRepository()

	_, ok, err := repo.Get(ctx, "reward_amount")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, "reward_amount", "100"))
	require.NoError(t, repo.Set(ctx, "reward_amount", "200"))
	require.NoError(t, repo.Set(ctx, "admin:0x1", "1"))
	require.NoError(t, repo.Set(ctx, "admin:0x2", "1"))

	value, ok, err := repo.Get(ctx, "reward_amount")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "200", value)

	admins, err := repo.GetByPrefix(ctx, "admin:")
	require.NoError(t, err)
	require.Len(t, admins, 2)

	require.NoError(t, repo.Delete(ctx, "admin:0x1"))
	admins, err = repo.GetByPrefix(ctx, "admin:")
	require.NoError(t, err)
	require.Len(t, admins, 1)
}

func TestTokenBalanceRepository_Transaction(t *testing.T) {
	ctx := testutil.MockContext()
	repo := NewTokenBalanceRepository()

	balance, err := repo.Get(ctx, "0xpool")
	require.NoError(t, err)
	require.Equal(t, 0, balance.Sign())

	require.NoError(t, repo.Set(ctx, "0xpool", big.NewInt(1000)))

	txCtx := xcontext.WithDBTransaction(ctx)
	require.NoError(t, repo.Set(txCtx, "0xpool", big.NewInt(1)))
	xcontext.WithRollbackDBTransaction(txCtx)

	balance, err = repo.Get(ctx, "0xpool")
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance.Int64())
}

func TestRewardClaimRepository(t *testing.T) {
	ctx := testutil.MockContext()
	repo := NewRewardClaimRepository()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.RewardClaim{
			Base:        entity.Base{ID: string(rune('a' + i))},
			AppAddress:  "0xapp",
			UserAddress: "0xuser",
			RootAddress: "0xroot",
			AppReward:   entity.NewBigInt(big.NewInt(int64(i))),
			BlockNumber: uint64(10 - i),
		}))
	}

	claims, err := repo.GetByApp(ctx, "0xapp", 0, 2)
	require.NoError(t, err)
	require.Len(t, claims, 2)
	require.Equal(t, uint64(7), claims[0].BlockNumber)

	claims, err = repo.GetByUser(ctx, "0xroot")
	require.NoError(t, err)
	require.Len(t, claims, 3)
}
