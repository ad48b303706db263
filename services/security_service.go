package services

import (
	"fmt"
	"time"

	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/models"

	"gorm.io/gorm"
)

// SystemActor is the attributed party for security actions nobody triggered
// explicitly (detector locks, alert rows).
const SystemActor = "system"

// RateLimitConfig bounds one action type to MaxRequests per Window.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultRateLimits returns the per-action limit table. Unknown actions fall
// back to the api_call entry.
func DefaultRateLimits() map[string]RateLimitConfig {
	return map[string]RateLimitConfig{
		"identify":  {MaxRequests: 20, Window: time.Hour},
		"save_food": {MaxRequests: 30, Window: time.Hour},
		"api_call":  {MaxRequests: 100, Window: time.Hour},
	}
}

// RateLimitResult reports whether one more action is allowed right now.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// AbuseDecision is the detector's verdict. Evaluating it has no side effects;
// the caller locks and alerts.
type AbuseDecision struct {
	ShouldLock bool
	Reason     string
}

// SecurityService owns rate limiting, abuse detection and the account lock
// state. All counters live in the relational store; there is no in-process
// coordination.
type SecurityService struct {
	db     *gorm.DB
	audit  *AuditService
	alerts *AlertService
	limits map[string]RateLimitConfig
	now    func() time.Time
}

// NewSecurityService copies the limit table so callers cannot mutate it after
// construction.
func NewSecurityService(db *gorm.DB, audit *AuditService, alerts *AlertService, limits map[string]RateLimitConfig) *SecurityService {
	table := make(map[string]RateLimitConfig, len(limits))
	for k, v := range limits {
		table[k] = v
	}
	return &SecurityService{
		db:     db,
		audit:  audit,
		alerts: alerts,
		limits: table,
		now:    time.Now,
	}
}

// EnsureStatus materializes the user's status row on first touch and returns
// it. Insert-if-absent then re-read; callers get a default unlocked row for
// users the security layer has never seen.
func (s *SecurityService) EnsureStatus(userID string) (*models.UserStatus, error) {
	var status models.UserStatus
	err := s.db.Where("user_id = ?", userID).First(&status).Error
	if err == nil {
		return &status, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	row := models.UserStatus{UserID: userID}
	if err := s.db.Where("user_id = ?", userID).FirstOrCreate(&row).Error; err != nil {
		return nil, err
	}
	if err := s.db.Where("user_id = ?", userID).First(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (s *SecurityService) IsLocked(userID string) (bool, error) {
	var status models.UserStatus
	err := s.db.Where("user_id = ?", userID).First(&status).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status.IsLocked, nil
}

// Lock flags the account and writes an audit entry attributed to the acting
// party (SystemActor when empty).
func (s *SecurityService) Lock(userID, reason, actor string) error {
	if _, err := s.EnsureStatus(userID); err != nil {
		return err
	}

	now := s.now()
	err := s.db.Model(&models.UserStatus{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_locked":   true,
			"lock_reason": reason,
			"locked_at":   now,
			"updated_at":  now,
		}).Error
	if err != nil {
		return err
	}

	if actor == "" {
		actor = SystemActor
	}
	return s.audit.Log(AuditEntry{
		UserID:       actor,
		Action:       "lock_account",
		ResourceType: "user",
		ResourceID:   userID,
		Details:      reason,
	})
}

func (s *SecurityService) Unlock(userID, actor string) error {
	now := s.now()
	err := s.db.Model(&models.UserStatus{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_locked":   false,
			"lock_reason": nil,
			"locked_at":   nil,
			"updated_at":  now,
		}).Error
	if err != nil {
		return err
	}

	if actor == "" {
		actor = SystemActor
	}
	return s.audit.Log(AuditEntry{
		UserID:       actor,
		Action:       "unlock_account",
		ResourceType: "user",
		ResourceID:   userID,
	})
}

// IncrementBlocked bumps the lifetime blocked-action counter and returns the
// new value.
func (s *SecurityService) IncrementBlocked(userID string) (int, error) {
	if _, err := s.EnsureStatus(userID); err != nil {
		return 0, err
	}

	err := s.db.Model(&models.UserStatus{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"blocked_count": gorm.Expr("blocked_count + ?", 1),
			"updated_at":    s.now(),
		}).Error
	if err != nil {
		return 0, err
	}

	var status models.UserStatus
	if err := s.db.Where("user_id = ?", userID).First(&status).Error; err != nil {
		return 0, err
	}
	return status.BlockedCount, nil
}

// CheckRateLimit counts the user's recent non-blocked actions against the
// action's window. The count-then-act sequence is not atomic: two concurrent
// requests from the same user can both pass before either audit row lands.
// Accepted as-is; the store serializes row writes but nothing spans the
// check and the act.
func (s *SecurityService) CheckRateLimit(userID, action string) (RateLimitResult, error) {
	cfg, ok := s.limits[action]
	if !ok {
		cfg, ok = s.limits["api_call"]
		if !ok {
			cfg = RateLimitConfig{MaxRequests: 100, Window: time.Hour}
		}
	}

	now := s.now()
	count, err := s.audit.CountActions(userID, action, now.Add(-cfg.Window))
	if err != nil {
		return RateLimitResult{}, err
	}

	remaining := cfg.MaxRequests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   int(count) < cfg.MaxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(cfg.Window),
	}, nil
}

// DetectAbuse decides whether the account should be locked. Policy, in order:
// already locked reports the existing reason; ten or more blocked actions in
// the trailing hour locks; a lifetime blocked count of fifty or more locks.
func (s *SecurityService) DetectAbuse(userID string) (AbuseDecision, error) {
	status, err := s.EnsureStatus(userID)
	if err != nil {
		return AbuseDecision{}, err
	}

	if status.IsLocked {
		reason := "Account locked"
		if status.LockReason != nil && *status.LockReason != "" {
			reason = *status.LockReason
		}
		return AbuseDecision{ShouldLock: true, Reason: reason}, nil
	}

	recentBlocked, err := s.audit.CountBlocked(userID, s.now().Add(-60*time.Minute))
	if err != nil {
		return AbuseDecision{}, err
	}
	if recentBlocked >= 10 {
		return AbuseDecision{
			ShouldLock: true,
			Reason:     fmt.Sprintf("Excessive blocked actions: %d in the last hour", recentBlocked),
		}, nil
	}

	if status.BlockedCount >= 50 {
		return AbuseDecision{
			ShouldLock: true,
			Reason:     fmt.Sprintf("High total blocked count: %d", status.BlockedCount),
		}, nil
	}

	return AbuseDecision{ShouldLock: false}, nil
}

// Authorize gates one action: locked accounts are rejected before the rate
// limit is evaluated, and either rejection runs the RegisterBlocked
// escalation before the typed error is returned.
func (s *SecurityService) Authorize(userID, action string, meta RequestMeta) error {
	locked, err := s.IsLocked(userID)
	if err != nil {
		return err
	}
	if locked {
		s.RegisterBlocked(userID, action, "user", "Account locked", meta)
		return &AccountLockedError{}
	}

	rl, err := s.CheckRateLimit(userID, action)
	if err != nil {
		return err
	}
	if !rl.Allowed {
		s.RegisterBlocked(userID, action, "api", "Rate limit exceeded", meta)
		return &RateLimitedError{Action: action, ResetAt: rl.ResetAt}
	}
	return nil
}

// RegisterBlocked records a rejected request and runs the escalation path:
// audit row with blocked status, counter bump, abuse detection, and a lock
// plus alert when the detector says so. Bookkeeping failures are logged and
// swallowed so the caller can still answer the request.
func (s *SecurityService) RegisterBlocked(userID, action, resourceType, details string, meta RequestMeta) {
	if err := s.audit.Log(AuditEntry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		Details:      details,
		Status:       models.AuditStatusBlocked,
		Meta:         meta,
	}); err != nil {
		logger.Error("failed to audit blocked action", "user_id", userID, "action", action, "error", err)
	}

	if _, err := s.IncrementBlocked(userID); err != nil {
		logger.Error("failed to increment blocked count", "user_id", userID, "error", err)
	}

	decision, err := s.DetectAbuse(userID)
	if err != nil {
		logger.Error("abuse detection failed", "user_id", userID, "error", err)
		return
	}
	if !decision.ShouldLock {
		return
	}

	locked, err := s.IsLocked(userID)
	if err != nil || locked {
		return
	}
	if err := s.Lock(userID, decision.Reason, SystemActor); err != nil {
		logger.Error("failed to lock account", "user_id", userID, "error", err)
		return
	}
	if s.alerts != nil {
		s.alerts.AbuseAlert(userID, decision.Reason)
	}
}
