package repository

import (
	"context"
	"errors"
	"math/big"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenBalanceRepository interface {
	// Get returns zero for unknown addresses.
	Get(ctx context.Context, address string) (*big.Int, error)
	Set(ctx context.Context, address string, balance *big.Int) error
}

type tokenBalanceRepository struct{}

func NewTokenBalanceRepository() *tokenBalanceRepository {
	return &tokenBalanceRepository{}
}

func (r *tokenBalanceRepository) Get(ctx context.Context, address string) (*big.Int, error) {
	var result entity.TokenBalance
	err := xcontext.DB(ctx).Take(&result, "address=?", address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return big.NewInt(0), nil
		}

		return nil, err
	}

	return result.Balance.Big(), nil
}

func (r *tokenBalanceRepository) Set(ctx context.Context, address string, balance *big.Int) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		Create(&entity.TokenBalance{Address: address, Balance: entity.NewBigInt(balance)}).Error
}
