package main

import (
	"github.com/questx-lab/engagement/internal/client"
	"github.com/urfave/cli/v2"
)

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "rewards"
	app.Usage = "Engagement rewards ledger and claim client"
	app.Commands = []*cli.Command{
		{
			Action:      s.startLedger,
			Name:        "ledger",
			Usage:       "Start the rewards ledger",
			Category:    "Ledger",
			Description: `Serves the rewards ledger over json rpc and exposes prometheus metrics.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the ledger database",
			Category:    "Ledger",
			Description: `Creates or updates the tables of the ledger.`,
		},
		{
			Action:      s.startSignClaim,
			Name:        "sign-claim",
			Usage:       "Sign a claim authorization for an app",
			Flags:       []cli.Flag{appFlag, inviterFlag, blocksFlag, submitFlag},
			Category:    "Ledger",
			Description: `Signs the registration of the signer account to an app, optionally sending it to the ledger.`,
		},
		{
			Action:      s.startAppInfo,
			Name:        "app",
			Usage:       "Show an app of the ledger",
			Flags:       []cli.Flag{appFlag},
			Category:    "Ledger",
			Description: `Prints the registration, the settings and the reward statistics of an app.`,
		},
		{
			Action:      s.startApply,
			Name:        "apply",
			Usage:       "Apply an app to the ledger",
			Flags:       []cli.Flag{appFlag, ownerFlag, receiverFlag, userAndInviterPercentageFlag, userPercentageFlag, descriptionFlag, urlFlag, emailFlag},
			Category:    "Operator",
			Description: `Registers the app, or updates its registration, signed by the signer account. The first application must be signed by the app.`,
		},
		{
			Action:      s.startUpdateApp,
			Name:        "update-app",
			Usage:       "Update the payout settings of an app",
			Flags:       []cli.Flag{appFlag, receiverFlag, userAndInviterPercentageFlag, userPercentageFlag},
			Category:    "Operator",
			Description: `Changes the reward receiver and the split of an app owned by the signer account.`,
		},
		{
			Action:      s.startApprove,
			Name:        "approve",
			Usage:       "Approve an applied app",
			Flags:       []cli.Flag{appFlag},
			Category:    "Operator",
			Description: `Approves the latest application of an app, the signer account must be admin.`,
		},
		{
			Action:      s.amountAction(client.LedgerCaller.SetRewardAmount),
			Name:        "set-reward",
			Usage:       "Set the reward amount of one claim",
			Flags:       []cli.Flag{amountFlag},
			Category:    "Operator",
			Description: `Sets the reward paid by each claim, the signer account must be admin.`,
		},
		{
			Action:      s.amountAction(client.LedgerCaller.SetMaxRewardsPerApp),
			Name:        "set-max-rewards",
			Usage:       "Set the maximum rewards of an app per window",
			Flags:       []cli.Flag{amountFlag},
			Category:    "Operator",
			Description: `Sets the cap of rewards an app can pay in one reset window, the signer account must be admin.`,
		},
		{
			Action:      s.amountAction(client.LedgerCaller.Deposit),
			Name:        "deposit",
			Usage:       "Fund the reward pool",
			Flags:       []cli.Flag{amountFlag},
			Category:    "Operator",
			Description: `Adds the amount to the reward pool of the ledger, the signer account must be admin.`,
		},
		{
			Action:      s.startSetAdmin,
			Name:        "set-admin",
			Usage:       "Grant or revoke the admin role",
			Flags:       []cli.Flag{accountFlag, revokeFlag},
			Category:    "Operator",
			Description: `Grants the admin role to the account, or revokes it with --revoke.`,
		},
		{
			Action:      s.startStatus,
			Name:        "status",
			Usage:       "Show the claim status of the signer account",
			Flags:       []cli.Flag{chainFlag},
			Category:    "Claim",
			Description: `Prints whether the account can claim and when the next claim opens.`,
		},
		{
			Action:      s.startEntitlement,
			Name:        "entitlement",
			Usage:       "Show the claimable amount of the signer account",
			Flags:       []cli.Flag{chainFlag},
			Category:    "Claim",
			Description: `Reads the entitlement on the primary chain, or on the given chain only.`,
		},
		{
			Action:      s.startClaim,
			Name:        "claim",
			Usage:       "Claim the reward of the current period",
			Flags:       []cli.Flag{chainFlag},
			Category:    "Claim",
			Description: `Tops up gas when needed, claims and waits for the receipt.`,
		},
	}

	s.app = app
}
