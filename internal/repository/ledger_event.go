package repository

import (
	"context"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

type LedgerEventRepository interface {
	Create(ctx context.Context, event *entity.LedgerEvent) error
	GetByApp(ctx context.Context, app string) ([]entity.LedgerEvent, error)
	GetByKind(ctx context.Context, kind entity.LedgerEventKind) ([]entity.LedgerEvent, error)
}

type ledgerEventRepository struct{}

func NewLedgerEventRepository() *ledgerEventRepository {
	return &ledgerEventRepository{}
}

func (r *ledgerEventRepository) Create(ctx context.Context, event *entity.LedgerEvent) error {
	return xcontext.DB(ctx).Create(event).Error
}

func (r *ledgerEventRepository) GetByApp(ctx context.Context, app string) ([]entity.LedgerEvent, error) {
	var result []entity.LedgerEvent
	err := xcontext.DB(ctx).
		Where("app_address=?", app).
		Order("block_number, created_at").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *ledgerEventRepository) GetByKind(ctx context.Context, kind entity.LedgerEventKind) ([]entity.LedgerEvent, error) {
	var result []entity.LedgerEvent
	err := xcontext.DB(ctx).
		Where("kind=?", kind).
		Order("block_number, created_at").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
