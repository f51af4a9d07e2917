package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/questx-lab/engagement/internal/client"
	"github.com/questx-lab/engagement/internal/domain/ledger"
	"github.com/questx-lab/engagement/pkg/ethutil"
	"github.com/questx-lab/engagement/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

var (
	ownerFlag = &cli.StringFlag{
		Name:  "owner",
		Usage: "Owner designated by the app, empty keeps the current owner",
	}
	receiverFlag = &cli.StringFlag{
		Name:     "receiver",
		Usage:    "Address receiving the app share of rewards",
		Required: true,
	}
	userAndInviterPercentageFlag = &cli.IntFlag{
		Name:  "user-and-inviter-percentage",
		Usage: "Percentage of the reward for the user and the inviter",
		Value: 80,
	}
	userPercentageFlag = &cli.IntFlag{
		Name:  "user-percentage",
		Usage: "Percentage of the user and inviter share for the user",
		Value: 75,
	}
	descriptionFlag = &cli.StringFlag{
		Name:     "description",
		Usage:    "Description users sign when they first claim",
		Required: true,
	}
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "Url of the app",
	}
	emailFlag = &cli.StringFlag{
		Name:  "email",
		Usage: "Contact email of the app",
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "Amount in the smallest unit of the reward token",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "Address of the account",
		Required: true,
	}
	revokeFlag = &cli.BoolFlag{
		Name:  "revoke",
		Usage: "Revoke the role instead of granting it",
	}
)

func (s *srv) newSignedLedgerCaller() (client.LedgerCaller, error) {
	signer, err := s.newLocalSigner()
	if err != nil {
		return nil, err
	}

	return s.newLedgerCaller(signer)
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	return amount, nil
}

func (s *srv) startApply(cctx *cli.Context) error {
	app, err := ethutil.ParseAddress(cctx.String(appFlag.Name))
	if err != nil {
		return err
	}

	owner, err := parseOptionalAddress(cctx.String(ownerFlag.Name))
	if err != nil {
		return err
	}

	receiver, err := ethutil.ParseAddress(cctx.String(receiverFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newSignedLedgerCaller()
	if err != nil {
		return err
	}
	defer caller.Close()

	if err := caller.ApplyApp(s.ctx, ledger.ApplyAppRequest{
		App:                      app,
		Owner:                    owner,
		RewardReceiver:           receiver,
		UserAndInviterPercentage: cctx.Int(userAndInviterPercentageFlag.Name),
		UserPercentage:           cctx.Int(userPercentageFlag.Name),
		Description:              cctx.String(descriptionFlag.Name),
		URL:                      cctx.String(urlFlag.Name),
		Email:                    cctx.String(emailFlag.Name),
	}); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Applied app %s, waiting for approval", app.Hex())
	return nil
}

func (s *srv) startUpdateApp(cctx *cli.Context) error {
	app, err := ethutil.ParseAddress(cctx.String(appFlag.Name))
	if err != nil {
		return err
	}

	receiver, err := ethutil.ParseAddress(cctx.String(receiverFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newSignedLedgerCaller()
	if err != nil {
		return err
	}
	defer caller.Close()

	return caller.UpdateAppSettings(s.ctx, app, receiver,
		cctx.Int(userAndInviterPercentageFlag.Name), cctx.Int(userPercentageFlag.Name))
}

func (s *srv) startApprove(cctx *cli.Context) error {
	app, err := ethutil.ParseAddress(cctx.String(appFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newSignedLedgerCaller()
	if err != nil {
		return err
	}
	defer caller.Close()

	if err := caller.Approve(s.ctx, app); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Approved app %s", app.Hex())
	return nil
}

// amountAction runs one admin write taking the amount flag, such as
// client.LedgerCaller.Deposit.
func (s *srv) amountAction(write func(client.LedgerCaller, context.Context, *big.Int) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		amount, err := parseAmount(cctx.String(amountFlag.Name))
		if err != nil {
			return err
		}

		caller, err := s.newSignedLedgerCaller()
		if err != nil {
			return err
		}
		defer caller.Close()

		return write(caller, s.ctx, amount)
	}
}

func (s *srv) startSetAdmin(cctx *cli.Context) error {
	account, err := ethutil.ParseAddress(cctx.String(accountFlag.Name))
	if err != nil {
		return err
	}

	caller, err := s.newSignedLedgerCaller()
	if err != nil {
		return err
	}
	defer caller.Close()

	return caller.SetAdmin(s.ctx, account, !cctx.Bool(revokeFlag.Name))
}
