package repository

import (
	"context"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

type RewardClaimRepository interface {
	Create(ctx context.Context, claim *entity.RewardClaim) error
	GetByApp(ctx context.Context, app string, offset, limit int) ([]entity.RewardClaim, error)
	GetByUser(ctx context.Context, user string) ([]entity.RewardClaim, error)
}

type rewardClaimRepository struct{}

func NewRewardClaimRepository() *rewardClaimRepository {
	return &rewardClaimRepository{}
}

func (r *rewardClaimRepository) Create(ctx context.Context, claim *entity.RewardClaim) error {
	return xcontext.DB(ctx).Create(claim).Error
}

func (r *rewardClaimRepository) GetByApp(ctx context.Context, app string, offset, limit int) ([]entity.RewardClaim, error) {
	var result []entity.RewardClaim
	tx := xcontext.DB(ctx).
		Where("app_address=?", app).
		Order("block_number, created_at").
		Offset(offset)

	if limit > 0 {
		tx = tx.Limit(limit)
	}

	if err := tx.Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *rewardClaimRepository) GetByUser(ctx context.Context, user string) ([]entity.RewardClaim, error) {
	var result []entity.RewardClaim
	err := xcontext.DB(ctx).
		Where("user_address=? OR root_address=?", user, user).
		Order("block_number, created_at").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
