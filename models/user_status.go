package models

import "time"

// UserStatus holds the per-user security state: the account lock flag and the
// cumulative count of blocked actions. One row per user, created lazily the
// first time the security layer touches the user.
type UserStatus struct {
	UserID       string     `gorm:"type:varchar(255);primaryKey" json:"user_id"`
	IsLocked     bool       `gorm:"index;default:false" json:"is_locked"`
	LockReason   *string    `gorm:"type:text" json:"lock_reason"`
	LockedAt     *time.Time `json:"locked_at"`
	BlockedCount int        `gorm:"default:0" json:"blocked_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (UserStatus) TableName() string {
	return "user_status"
}
