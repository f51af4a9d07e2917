package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/internal/domain/claim"
	"github.com/questx-lab/engagement/internal/domain/faucet"
	"github.com/questx-lab/engagement/internal/domain/identity"
	"github.com/questx-lab/engagement/internal/domain/ledger"
	"github.com/questx-lab/engagement/internal/repository"
	"github.com/questx-lab/engagement/migration"
	"github.com/questx-lab/engagement/pkg/api"
	"github.com/questx-lab/engagement/pkg/blockchain/eth"
	"github.com/questx-lab/engagement/pkg/logger"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/questx-lab/engagement/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	app     *cli.App
	ctx     context.Context
	configs config.Configs

	registry *config.ChainRegistry
	factory  *blockchain.ClientFactory

	appRepo              repository.AppRepository
	appStatsRepo         repository.AppStatsRepository
	userRegistrationRepo repository.UserRegistrationRepository
	rewardClaimRepo      repository.RewardClaimRepository
	ledgerEventRepo      repository.LedgerEventRepository
	ledgerSettingRepo    repository.LedgerSettingRepository
	tokenBalanceRepo     repository.TokenBalanceRepository
}

func (s *srv) loadContext() {
	s.ctx = context.Background()
	s.ctx = xcontext.WithConfigs(s.ctx, s.configs)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(s.configs.LogLevel)))
	s.ctx = xcontext.WithHTTPClient(s.ctx, &http.Client{Timeout: s.configs.Claim.RPCTimeout})
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database)
	case "mysql", "":
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	default:
		panic(fmt.Sprintf("unsupported database driver %s", cfg.Driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		panic(err)
	}

	return db
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

func (s *srv) migrateDB() {
	if err := migration.AutoMigrate(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.appRepo = repository.NewAppRepository()
	s.appStatsRepo = repository.NewAppStatsRepository()
	s.userRegistrationRepo = repository.NewUserRegistrationRepository()
	s.rewardClaimRepo = repository.NewRewardClaimRepository()
	s.ledgerEventRepo = repository.NewLedgerEventRepository()
	s.ledgerSettingRepo = repository.NewLedgerSettingRepository()
	s.tokenBalanceRepo = repository.NewTokenBalanceRepository()
}

func (s *srv) loadRegistry() error {
	cfg := xcontext.Configs(s.ctx)

	registry, err := config.LoadChainRegistry(cfg.RegistryFile, cfg.Env)
	if err != nil {
		return err
	}

	eth.RpcTimeOut = cfg.Claim.RPCTimeout
	s.registry = registry
	s.factory = blockchain.NewClientFactory(registry, eth.Dial)
	return nil
}

// newResolver checks identities on the given chain. Without an identity
// contract, every account is its own root, which is only allowed outside of
// production.
func (s *srv) newResolver(chainID int64) (identity.Resolver, error) {
	if s.registry != nil {
		if _, err := s.registry.ContractAddress(chainID, config.ContractIdentity); err == nil {
			return identity.NewResolver(s.factory), nil
		}
	}

	if xcontext.Configs(s.ctx).Env == config.EnvProduction {
		return nil, fmt.Errorf("%w: no identity contract on chain %d", config.ErrMisconfigured, chainID)
	}

	xcontext.Logger(s.ctx).Warnf("No identity contract on chain %d, every account is whitelisted", chainID)
	return identity.AllowAllResolver{}, nil
}

func (s *srv) newLedger(clock ledger.Clock, resolver identity.Resolver) (*ledger.Ledger, error) {
	return ledger.NewLedger(
		xcontext.Configs(s.ctx).Ledger,
		clock,
		resolver,
		s.appRepo,
		s.appStatsRepo,
		s.userRegistrationRepo,
		s.rewardClaimRepo,
		s.ledgerEventRepo,
		s.ledgerSettingRepo,
		s.tokenBalanceRepo,
	)
}

// newFaucetStore returns the throttle store and a function releasing it.
func (s *srv) newFaucetStore() (faucet.Store, func(), error) {
	cfg := xcontext.Configs(s.ctx).Faucet

	switch cfg.Store {
	case "memory", "":
		return faucet.NewMemoryStore(), func() {}, nil

	case "redis":
		client, err := xredis.NewClient(s.ctx)
		if err != nil {
			return nil, nil, err
		}

		return faucet.NewRedisStore(client, cfg.ThrottleWindow), func() { client.Close() }, nil

	case "bolt":
		store, err := faucet.NewBoltStore(cfg.BoltFile)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { store.Close() }, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown faucet store %s", config.ErrMisconfigured, cfg.Store)
}

// newOrchestrator wires every component needed to claim for the signer
// account. The returned function releases the faucet store.
func (s *srv) newOrchestrator(chainID int64) (*claim.Orchestrator, func(), error) {
	if err := s.loadRegistry(); err != nil {
		return nil, nil, err
	}

	cfg := xcontext.Configs(s.ctx)
	signer, err := blockchain.NewSigner(cfg.Signer)
	if err != nil {
		return nil, nil, err
	}

	if chainID == 0 {
		chainID = s.registry.PrimaryChain()
	}

	if _, err := s.registry.Chain(chainID); err != nil {
		return nil, nil, err
	}

	resolver, err := s.newResolver(chainID)
	if err != nil {
		return nil, nil, err
	}

	store, release, err := s.newFaucetStore()
	if err != nil {
		return nil, nil, err
	}

	var backend api.Generator
	if cfg.Faucet.BackendURL != "" {
		backend = api.NewGenerator(cfg.Faucet.BackendURL)
	} else {
		backend = api.NewGenerator()
	}

	submitter := blockchain.NewSubmitter(s.factory, signer)
	assurance := faucet.NewAssurance(s.factory, submitter, store, backend)
	return claim.NewOrchestrator(s.factory, resolver, submitter, assurance, chainID), release, nil
}
