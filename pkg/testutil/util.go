package testutil

import (
	"context"

	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/migration"
	"github.com/questx-lab/engagement/pkg/logger"
	"github.com/questx-lab/engagement/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func MockConfigs() config.Configs {
	faucet := config.DefaultFaucetConfigs()
	faucet.RetryDelay = 0

	return config.Configs{
		Env:      config.EnvProduction,
		LogLevel: "silence",
		Ledger:   config.DefaultLedgerConfigs(),
		Faucet:   faucet,
		Claim: config.ClaimConfigs{
			ReceiptMaxAttempts: 3,
			VerificationURL:    "https://wallet.example/verify",
		},
	}
}

func MockContext() context.Context {
	return MockContextWithConfigs(MockConfigs())
}

func MockContextWithConfigs(cfg config.Configs) context.Context {
	// One connection keeps every query on the same in-memory database.
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.AutoMigrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}
