package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/questx-lab/engagement/config"
	"github.com/questx-lab/engagement/internal/client"
	"github.com/questx-lab/engagement/internal/domain/blockchain"
	"github.com/questx-lab/engagement/internal/domain/ledger"
	"github.com/questx-lab/engagement/pkg/ethutil"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

var (
	appFlag = &cli.StringFlag{
		Name:     "app",
		Usage:    "Address of the app",
		Required: true,
	}
	inviterFlag = &cli.StringFlag{
		Name:  "inviter",
		Usage: "Address of the inviter, empty for no inviter",
	}
	blocksFlag = &cli.Uint64Flag{
		Name:  "blocks",
		Usage: "Number of ledger blocks the signature stays valid",
		Value: 10,
	}
	submitFlag = &cli.BoolFlag{
		Name:  "submit",
		Usage: "Send the signed claim to the ledger",
	}
)

func (s *srv) newLedgerCaller(signer ledger.HashSigner) (client.LedgerCaller, error) {
	rpcClient, err := rpc.DialContext(s.ctx, "http://"+xcontext.Configs(s.ctx).LedgerServer.Address())
	if err != nil {
		return nil, err
	}

	return client.NewLedgerCaller(rpcClient, signer), nil
}

// newLocalSigner returns the configured signer, which must hold its key to
// sign ledger requests.
func (s *srv) newLocalSigner() (blockchain.Signer, error) {
	signer, err := blockchain.NewSigner(xcontext.Configs(s.ctx).Signer)
	if err != nil {
		return nil, err
	}

	if !signer.CanSignLocally() {
		return nil, fmt.Errorf("%w: signing ledger requests needs a local key", config.ErrMisconfigured)
	}

	return signer, nil
}

func parseOptionalAddress(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}

	return ethutil.ParseAddress(s)
}

func (s *srv) startSignClaim(cctx *cli.Context) error {
	signer, err := s.newLocalSigner()
	if err != nil {
		return err
	}

	app, err := ethutil.ParseAddress(cctx.String(appFlag.Name))
	if err != nil {
		return err
	}

	inviter, err := parseOptionalAddress(cctx.String(inviterFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newLedgerCaller(signer)
	if err != nil {
		return err
	}
	defer caller.Close()

	info, err := caller.GetApp(s.ctx, app)
	if err != nil {
		return err
	}

	domain, err := caller.Domain(s.ctx)
	if err != nil {
		return err
	}

	block, err := caller.BlockNumber(s.ctx)
	if err != nil {
		return err
	}

	validUntil := block + cctx.Uint64(blocksFlag.Name)
	hash, err := domain.ClaimHash(ledger.ClaimAuthorization{
		App:             app,
		Inviter:         inviter,
		ValidUntilBlock: validUntil,
		Description:     info.Description,
	})
	if err != nil {
		return err
	}

	signature, err := signer.SignHash(hash)
	if err != nil {
		return err
	}

	if !cctx.Bool(submitFlag.Name) {
		return printJSON(map[string]any{
			"user":            signer.Address(),
			"app":             app,
			"inviter":         inviter,
			"validUntilBlock": hexutil.Uint64(validUntil),
			"signature":       hexutil.Bytes(signature),
		})
	}

	result, err := caller.ClaimWithSignature(s.ctx, app, inviter, validUntil, signature)
	if err != nil {
		return err
	}

	return printJSON(result)
}

func (s *srv) startAppInfo(cctx *cli.Context) error {
	app, err := ethutil.ParseAddress(cctx.String(appFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newLedgerCaller(nil)
	if err != nil {
		return err
	}
	defer caller.Close()

	info, err := caller.GetApp(s.ctx, app)
	if err != nil {
		return err
	}

	stats, err := caller.GetAppStats(s.ctx, app)
	if err != nil {
		return err
	}

	reward, err := caller.RewardAmount(s.ctx)
	if err != nil {
		return err
	}

	return printJSON(map[string]any{
		"app":          info,
		"stats":        stats,
		"rewardAmount": reward,
	})
}
