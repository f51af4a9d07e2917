package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/internal/domain/ledger"
	"github.com/questx-lab/engagement/pkg/prometheus"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func (s *srv) startLedger(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	cfg := xcontext.Configs(s.ctx)
	s.migrateDB()
	s.loadRepos()

	if err := s.loadRegistry(); err != nil {
		if !errors.Is(err, config.ErrMisconfigured) || cfg.Env == config.EnvProduction {
			return err
		}

		xcontext.Logger(s.ctx).Warnf("Cannot load chain registry: %v", err)
	}

	resolver, err := s.newResolver(cfg.Ledger.ChainID)
	if err != nil {
		return err
	}

	genesis, err := ledger.LoadGenesis(s.ctx, s.ledgerSettingRepo, time.Now())
	if err != nil {
		return err
	}

	l, err := s.newLedger(ledger.NewBlockClock(genesis, cfg.Ledger.BlockTime), resolver)
	if err != nil {
		return err
	}

	if err := l.Setup(s.ctx); err != nil {
		xcontext.Logger(s.ctx).Errorf("Cannot setup ledger: %v", err)
		return err
	}

	rpcHandler := rpc.NewServer()
	defer rpcHandler.Stop()
	if err := rpcHandler.RegisterName(cfg.LedgerServer.RPCName, ledger.NewService(s.ctx, l)); err != nil {
		xcontext.Logger(s.ctx).Errorf("Cannot register ledger service: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(s.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	servers := []*http.Server{
		{Addr: cfg.PrometheusServer.Address(), Handler: prometheus.NewHandler()},
		{Addr: cfg.LedgerServer.Address(), Handler: rpcHandler},
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, httpSrv := range servers {
		httpSrv := httpSrv
		eg.Go(func() error {
			xcontext.Logger(s.ctx).Infof("Starting server on %s", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				xcontext.Logger(s.ctx).Errorf("An error occurs when running server %s: %v", httpSrv.Addr, err)
				return err
			}

			return nil
		})
	}

	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, httpSrv := range servers {
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				xcontext.Logger(s.ctx).Warnf("Cannot shutdown server %s: %v", httpSrv.Addr, err)
			}
		}

		return nil
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Ledger server stopped")
	return nil
}
