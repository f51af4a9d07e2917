package repository

import (
	"context"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type AppRepository interface {
	Upsert(ctx context.Context, app *entity.App) error
	GetByAddress(ctx context.Context, address string) (*entity.App, error)
	GetByOwner(ctx context.Context, owner string) ([]entity.App, error)
	GetAll(ctx context.Context) ([]entity.App, error)
}

type appRepository struct{}

func NewAppRepository() *appRepository {
	return &appRepository{}
}

func (r *appRepository) Upsert(ctx context.Context, app *entity.App) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			UpdateAll: true,
		}).
		Create(app).Error
}

func (r *appRepository) GetByAddress(ctx context.Context, address string) (*entity.App, error) {
	var result entity.App
	if err := xcontext.DB(ctx).Take(&result, "address=?", address).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *appRepository) GetByOwner(ctx context.Context, owner string) ([]entity.App, error) {
	var result []entity.App
	if err := xcontext.DB(ctx).Order("created_at").Find(&result, "owner=?", owner).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *appRepository) GetAll(ctx context.Context) ([]entity.App, error) {
	var result []entity.App
	if err := xcontext.DB(ctx).Order("created_at").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}
