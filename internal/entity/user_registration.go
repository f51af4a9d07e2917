package entity

import (
	"database/sql"
	"time"
)

type UserRegistration struct {
	AppAddress  string `gorm:"primaryKey"`
	UserAddress string `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	IsRegistered bool
	LastClaimAt  sql.NullTime
}
