package repository

import (
	"context"
	"errors"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRegistrationRepository interface {
	Upsert(ctx context.Context, registration *entity.UserRegistration) error

	// Get returns an empty registration when there is no record of the user.
	Get(ctx context.Context, app, user string) (*entity.UserRegistration, error)
	CountRegistered(ctx context.Context, app string) (int64, error)
}

type userRegistrationRepository struct{}

func NewUserRegistrationRepository() *userRegistrationRepository {
	return &userRegistrationRepository{}
}

func (r *userRegistrationRepository) Upsert(ctx context.Context, registration *entity.UserRegistration) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_address"}, {Name: "user_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_registered", "last_claim_at", "updated_at"}),
		}).
		Create(registration).Error
}

func (r *userRegistrationRepository) Get(ctx context.Context, app, user string) (*entity.UserRegistration, error) {
	var result entity.UserRegistration
	err := xcontext.DB(ctx).Take(&result, "app_address=? AND user_address=?", app, user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &entity.UserRegistration{AppAddress: app, UserAddress: user}, nil
		}

		return nil, err
	}

	return &result, nil
}

func (r *userRegistrationRepository) CountRegistered(ctx context.Context, app string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).
		Model(&entity.UserRegistration{}).
		Where("app_address=? AND is_registered=?", app, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}
