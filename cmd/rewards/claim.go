package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

var chainFlag = &cli.Int64Flag{
	Name:  "chain",
	Usage: "Chain id to use instead of the primary chain",
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (s *srv) startStatus(cctx *cli.Context) error {
	orchestrator, release, err := s.newOrchestrator(cctx.Int64(chainFlag.Name))
	if err != nil {
		return err
	}
	defer release()

	status, err := orchestrator.GetWalletClaimStatus(s.ctx)
	if err != nil {
		return err
	}

	return printJSON(status)
}

func (s *srv) startEntitlement(cctx *cli.Context) error {
	orchestrator, release, err := s.newOrchestrator(0)
	if err != nil {
		return err
	}
	defer release()

	var override *int64
	if cctx.IsSet(chainFlag.Name) {
		chainID := cctx.Int64(chainFlag.Name)
		override = &chainID
	}

	entitlement, err := orchestrator.CheckEntitlement(s.ctx, override)
	if err != nil {
		return err
	}

	return printJSON(entitlement)
}

func (s *srv) startClaim(cctx *cli.Context) error {
	orchestrator, release, err := s.newOrchestrator(cctx.Int64(chainFlag.Name))
	if err != nil {
		return err
	}
	defer release()

	receipt, err := orchestrator.Claim(s.ctx, func(hash common.Hash) {
		xcontext.Logger(s.ctx).Infof("Submitted claim transaction %s", hash)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Claimed for %s on chain %d in block %s, tx %s\n",
		orchestrator.Account().Hex(), orchestrator.ChainID(), receipt.BlockNumber, receipt.TxHash.Hex())
	return nil
}
