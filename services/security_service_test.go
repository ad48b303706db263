package services

import (
	"testing"
	"time"

	"github.com/kyleolivo/viet-food/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertBlockedRows(t *testing.T, security *SecurityService, userID string, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, security.db.Create(&models.AuditLog{
			UserID:    userID,
			Action:    "identify",
			Status:    models.AuditStatusBlocked,
			CreatedAt: time.Now().Add(-age),
		}).Error)
	}
}

func TestEnsureStatusLazilyCreatesUnlockedRow(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	status, err := security.EnsureStatus("user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", status.UserID)
	assert.False(t, status.IsLocked)
	assert.Zero(t, status.BlockedCount)

	// Second touch reads the same row.
	again, err := security.EnsureStatus("user-1")
	require.NoError(t, err)
	assert.Equal(t, status.CreatedAt, again.CreatedAt)
}

func TestIsLockedUnknownUser(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	locked, err := security.IsLocked("never-seen")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestLockAndUnlock(t *testing.T) {
	security, audit, _ := newTestSecurity(t)

	require.NoError(t, security.Lock("user-1", "manual review", "admin42"))

	status, err := security.EnsureStatus("user-1")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	require.NotNil(t, status.LockReason)
	assert.Equal(t, "manual review", *status.LockReason)
	assert.NotNil(t, status.LockedAt)

	logs, err := audit.RecentLogs("admin42", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "lock_account", logs[0].Action)
	assert.Equal(t, "user-1", logs[0].ResourceID)

	require.NoError(t, security.Unlock("user-1", ""))

	status, err = security.EnsureStatus("user-1")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Nil(t, status.LockReason)
	assert.Nil(t, status.LockedAt)

	logs, err = audit.RecentLogs(SystemActor, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "unlock_account", logs[0].Action)
}

func TestIncrementBlocked(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	n, err := security.IncrementBlocked("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = security.IncrementBlocked("user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDetectAbuseReportsExistingLock(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	require.NoError(t, security.Lock("user-1", "manual review", ""))

	decision, err := security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.True(t, decision.ShouldLock)
	assert.Equal(t, "manual review", decision.Reason)
}

func TestDetectAbuseRecentBlockedBoundary(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	insertBlockedRows(t, security, "user-1", 9, 5*time.Minute)

	decision, err := security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.False(t, decision.ShouldLock)

	insertBlockedRows(t, security, "user-1", 1, 5*time.Minute)

	decision, err = security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.True(t, decision.ShouldLock)
	assert.Contains(t, decision.Reason, "Excessive blocked actions")
}

func TestDetectAbuseIgnoresStaleBlockedRows(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	insertBlockedRows(t, security, "user-1", 15, 2*time.Hour)

	decision, err := security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.False(t, decision.ShouldLock)
}

func TestDetectAbuseLifetimeBlockedCount(t *testing.T) {
	security, _, db := newTestSecurity(t)

	_, err := security.EnsureStatus("user-1")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.UserStatus{}).
		Where("user_id = ?", "user-1").
		Update("blocked_count", 50).Error)

	// No recent activity at all: the lifetime threshold alone locks.
	decision, err := security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.True(t, decision.ShouldLock)
	assert.Contains(t, decision.Reason, "High total blocked count")

	require.NoError(t, db.Model(&models.UserStatus{}).
		Where("user_id = ?", "user-1").
		Update("blocked_count", 49).Error)

	decision, err = security.DetectAbuse("user-1")
	require.NoError(t, err)
	assert.False(t, decision.ShouldLock)
}

func TestCheckRateLimitExhaustionAndReset(t *testing.T) {
	security, _, db := newTestSecurity(t)

	for i := 0; i < 20; i++ {
		require.NoError(t, db.Create(&models.AuditLog{
			UserID:    "user-1",
			Action:    "identify",
			Status:    models.AuditStatusSuccess,
			CreatedAt: time.Now().Add(-time.Minute),
		}).Error)
	}

	result, err := security.CheckRateLimit("user-1", "identify")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ResetAt, 5*time.Second)

	// Move the clock past the window; the old rows fall out.
	security.now = func() time.Time { return time.Now().Add(61 * time.Minute) }

	result, err = security.CheckRateLimit("user-1", "identify")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 20, result.Remaining)
}

func TestCheckRateLimitIgnoresBlockedRows(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	insertBlockedRows(t, security, "user-1", 25, time.Minute)

	result, err := security.CheckRateLimit("user-1", "identify")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 20, result.Remaining)
}

func TestCheckRateLimitUnknownActionFallsBack(t *testing.T) {
	security, _, _ := newTestSecurity(t)

	result, err := security.CheckRateLimit("user-1", "mystery_action")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Remaining)
}

func TestRegisterBlockedEscalatesToLock(t *testing.T) {
	security, audit, _ := newTestSecurity(t)

	insertBlockedRows(t, security, "user-1", 9, 5*time.Minute)

	security.RegisterBlocked("user-1", "identify", "api", "Rate limit exceeded", RequestMeta{IPAddress: "10.0.0.1"})

	locked, err := security.IsLocked("user-1")
	require.NoError(t, err)
	assert.True(t, locked)

	// The escalation writes the lock and alert rows attributed to the system.
	logs, err := audit.RecentLogs(SystemActor, 10)
	require.NoError(t, err)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Contains(t, actions, "lock_account")
	assert.Contains(t, actions, "abuse_alert")
}

func TestRegisterBlockedBelowThresholdDoesNotLock(t *testing.T) {
	security, audit, _ := newTestSecurity(t)

	security.RegisterBlocked("user-1", "identify", "api", "Rate limit exceeded", RequestMeta{})

	locked, err := security.IsLocked("user-1")
	require.NoError(t, err)
	assert.False(t, locked)

	status, err := security.EnsureStatus("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.BlockedCount)

	logs, err := audit.RecentLogs("user-1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditStatusBlocked, logs[0].Status)
}

func TestAuthorizeReturnsTypedErrors(t *testing.T) {
	security, _, db := newTestSecurity(t)

	require.NoError(t, security.Authorize("user-1", "identify", RequestMeta{}))

	require.NoError(t, security.Lock("user-1", "manual review", ""))
	err := security.Authorize("user-1", "identify", RequestMeta{})
	var lockedErr *AccountLockedError
	require.ErrorAs(t, err, &lockedErr)

	for i := 0; i < 30; i++ {
		require.NoError(t, db.Create(&models.AuditLog{
			UserID:    "user-2",
			Action:    "save_food",
			Status:    models.AuditStatusSuccess,
			CreatedAt: time.Now().Add(-time.Minute),
		}).Error)
	}
	err = security.Authorize("user-2", "save_food", RequestMeta{})
	var limitedErr *RateLimitedError
	require.ErrorAs(t, err, &limitedErr)
	assert.Equal(t, "save_food", limitedErr.Action)
	assert.WithinDuration(t, time.Now().Add(time.Hour), limitedErr.ResetAt, 5*time.Second)
}

func TestRateLimitTableIsCopiedAtConstruction(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db)

	limits := map[string]RateLimitConfig{
		"identify": {MaxRequests: 1, Window: time.Hour},
		"api_call": {MaxRequests: 100, Window: time.Hour},
	}
	security := NewSecurityService(db, audit, NewAlertService(audit), limits)

	// Mutating the caller's map must not affect the service.
	limits["identify"] = RateLimitConfig{MaxRequests: 1000, Window: time.Hour}

	require.NoError(t, db.Create(&models.AuditLog{
		UserID:    "user-1",
		Action:    "identify",
		Status:    models.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-time.Minute),
	}).Error)

	result, err := security.CheckRateLimit("user-1", "identify")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}
