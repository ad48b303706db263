package models

import "time"

// Audit row statuses.
const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
	AuditStatusBlocked = "blocked"
)

// AuditLog is an append-only record of a user action. Rows are never mutated
// or deleted by the application; rate-limit windows are counted directly
// against this table.
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(255);index;not null" json:"user_id"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50;not null" json:"resource_type"`
	ResourceID   string    `gorm:"size:255" json:"resource_id"`
	Details      string    `gorm:"type:text" json:"details"`
	IPAddress    string    `gorm:"size:45" json:"ip_address"`
	UserAgent    string    `gorm:"type:text" json:"user_agent"`
	Status       string    `gorm:"size:20;not null;index;default:'success'" json:"status"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
