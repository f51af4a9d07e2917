package entity

import "time"

type App struct {
	Address   string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Owner          string `gorm:"index"`
	RewardReceiver string

	// UserAndInviterPercentage is the share of every reward which goes to the
	// user and the inviter, the rest goes to the app. UserPercentage is the
	// share of the user inside that pool.
	UserAndInviterPercentage int
	UserPercentage           int

	Description string
	URL         string
	Email       string

	IsRegistered bool
	IsApproved   bool

	TotalRewardsClaimed BigInt `gorm:"type:varchar(80)"`

	// RegisteredAt is reset on every apply and drives the expiration.
	RegisteredAt time.Time
	// LastResetAt is the start of the current reward window.
	LastResetAt time.Time
}

type AppStats struct {
	AppAddress string `gorm:"primaryKey"`
	UpdatedAt  time.Time

	NumberOfRewards     uint64
	TotalAppRewards     BigInt `gorm:"type:varchar(80)"`
	TotalUserRewards    BigInt `gorm:"type:varchar(80)"`
	TotalInviterRewards BigInt `gorm:"type:varchar(80)"`

	// TotalRetainedRewards is the inviter share of claims without inviter
	// which stayed in the pool.
	TotalRetainedRewards BigInt `gorm:"type:varchar(80)"`
}
