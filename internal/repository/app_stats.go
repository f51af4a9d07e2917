package repository

import (
	"context"
	"errors"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppStatsRepository interface {
	Upsert(ctx context.Context, stats *entity.AppStats) error

	// Get returns empty stats when the app has never been rewarded.
	Get(ctx context.Context, app string) (*entity.AppStats, error)
}

type appStatsRepository struct{}

func NewAppStatsRepository() *appStatsRepository {
	return &appStatsRepository{}
}

func (r *appStatsRepository) Upsert(ctx context.Context, stats *entity.AppStats) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_address"}},
			UpdateAll: true,
		}).
		Create(stats).Error
}

func (r *appStatsRepository) Get(ctx context.Context, app string) (*entity.AppStats, error) {
	var result entity.AppStats
	err := xcontext.DB(ctx).Take(&result, "app_address=?", app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &entity.AppStats{AppAddress: app}, nil
		}

		return nil, err
	}

	return &result, nil
}
