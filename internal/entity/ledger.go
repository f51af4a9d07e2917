package entity

import (
	"time"

	"github.com/questx-lab/engagement/pkg/enum"
)

type RewardClaim struct {
	Base

	AppAddress  string `gorm:"index"`
	UserAddress string `gorm:"index"`
	RootAddress string
	Inviter     string

	AppReward     BigInt `gorm:"type:varchar(80)"`
	UserReward    BigInt `gorm:"type:varchar(80)"`
	InviterReward BigInt `gorm:"type:varchar(80)"`

	BlockNumber uint64
}

type LedgerEventKind string

var (
	LedgerEventAppApplied         = enum.New(LedgerEventKind("app_applied"))
	LedgerEventAppApproved        = enum.New(LedgerEventKind("app_approved"))
	LedgerEventAppSettingsUpdated = enum.New(LedgerEventKind("app_settings_updated"))
	LedgerEventRewardClaimed      = enum.New(LedgerEventKind("reward_claimed"))
	LedgerEventSettingsUpdated    = enum.New(LedgerEventKind("settings_updated"))
	LedgerEventDeposited          = enum.New(LedgerEventKind("deposited"))
)

type LedgerEvent struct {
	Base

	Kind        LedgerEventKind `gorm:"index"`
	AppAddress  string          `gorm:"index"`
	BlockNumber uint64
	Data        Map
}

type LedgerSetting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

type TokenBalance struct {
	Address   string `gorm:"primaryKey"`
	Balance   BigInt `gorm:"type:varchar(80)"`
	UpdatedAt time.Time
}
