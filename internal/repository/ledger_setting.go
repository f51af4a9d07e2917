package repository

import (
	"context"
	"errors"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerSettingRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetByPrefix(ctx context.Context, prefix string) ([]entity.LedgerSetting, error)
}

type ledgerSettingRepository struct{}

func NewLedgerSettingRepository() *ledgerSettingRepository {
	return &ledgerSettingRepository{}
}

func (r *ledgerSettingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var result entity.LedgerSetting
	err := xcontext.DB(ctx).Take(&result, "`key`=?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}

		return "", false, err
	}

	return result.Value, true, nil
}

func (r *ledgerSettingRepository) Set(ctx context.Context, key, value string) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entity.LedgerSetting{Key: key, Value: value}).Error
}

func (r *ledgerSettingRepository) Delete(ctx context.Context, key string) error {
	return xcontext.DB(ctx).Delete(&entity.LedgerSetting{}, "`key`=?", key).Error
}

func (r *ledgerSettingRepository) GetByPrefix(ctx context.Context, prefix string) ([]entity.LedgerSetting, error) {
	var result []entity.LedgerSetting
	err := xcontext.DB(ctx).
		Where("`key` LIKE ?", prefix+"%").
		Order("`key`").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
