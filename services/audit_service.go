package services

import (
	"time"

	"github.com/kyleolivo/viet-food/models"

	"gorm.io/gorm"
)

// RequestMeta is the per-request metadata recorded on every audit row.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditEntry is one action to record. Status defaults to success.
type AuditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      string
	Status       string
	Meta         RequestMeta
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log appends one audit row. Rows are write-once; nothing in the application
// updates or deletes them, and the rate limiter counts directly against them.
func (s *AuditService) Log(e AuditEntry) error {
	status := e.Status
	if status == "" {
		status = models.AuditStatusSuccess
	}
	row := models.AuditLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		IPAddress:    e.Meta.IPAddress,
		UserAgent:    e.Meta.UserAgent,
		Status:       status,
	}
	return s.db.Create(&row).Error
}

func (s *AuditService) RecentLogs(userID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountActions counts a user's non-blocked actions of one type since the
// given instant. Blocked attempts are excluded so a rejected request does not
// consume rate-limit allowance.
func (s *AuditService) CountActions(userID, action string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.AuditLog{}).
		Where("user_id = ? AND action = ? AND status != ? AND created_at > ?",
			userID, action, models.AuditStatusBlocked, since).
		Count(&count).Error
	return count, err
}

// CountBlocked counts a user's blocked actions of any type since the given
// instant.
func (s *AuditService) CountBlocked(userID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.AuditLog{}).
		Where("user_id = ? AND status = ? AND created_at > ?",
			userID, models.AuditStatusBlocked, since).
		Count(&count).Error
	return count, err
}
