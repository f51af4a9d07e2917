package migration

import (
	"context"

	"github.com/questx-lab/engagement/internal/entity"
	"github.com/questx-lab/engagement/pkg/xcontext"
)

// When this migrator is called, no need to call other migrators.
func AutoMigrate(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.App{},
		&entity.AppStats{},
		&entity.UserRegistration{},
		&entity.RewardClaim{},
		&entity.LedgerEvent{},
		&entity.LedgerSetting{},
		&entity.TokenBalance{},
	)
}
