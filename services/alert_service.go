package services

import (
	"context"
	"fmt"
	"os"

	"github.com/kyleolivo/viet-food/logger"
	"github.com/kyleolivo/viet-food/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
)

// AlertService fans out abuse alerts: an audit row always, an SES email to
// ADMIN_EMAIL and an SNS publish to SNS_ABUSE_TOPIC_ARN when configured.
// Alerting never fails the request that triggered it.
type AlertService struct {
	audit      *AuditService
	sns        *awssns.Client
	topicARN   string
	adminEmail string
}

func NewAlertService(audit *AuditService) *AlertService {
	svc := &AlertService{
		audit:      audit,
		topicARN:   os.Getenv("SNS_ABUSE_TOPIC_ARN"),
		adminEmail: os.Getenv("ADMIN_EMAIL"),
	}

	if svc.topicARN != "" {
		cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(os.Getenv("AWS_REGION")))
		if err != nil {
			logger.Warn("AWS config load failed, SNS alerts disabled", "error", err)
		} else {
			svc.sns = awssns.NewFromConfig(cfg)
		}
	}
	return svc
}

func (a *AlertService) AbuseAlert(userID, reason string) {
	if err := a.audit.Log(AuditEntry{
		UserID:       SystemActor,
		Action:       "abuse_alert",
		ResourceType: "user",
		ResourceID:   userID,
		Details:      reason,
	}); err != nil {
		logger.Error("failed to audit abuse alert", "user_id", userID, "error", err)
	}

	logger.Warn("abuse alert", "user_id", userID, "reason", reason)

	if a.adminEmail != "" {
		if err := utils.SendAbuseAlertEmail(a.adminEmail, userID, reason); err != nil {
			logger.Error("abuse alert email failed", "user_id", userID, "error", err)
		}
	}

	if a.sns != nil {
		msg := fmt.Sprintf("Abuse alert: user %s\nReason: %s", userID, reason)
		_, err := a.sns.Publish(context.TODO(), &awssns.PublishInput{
			TopicArn: aws.String(a.topicARN),
			Subject:  aws.String("Abuse alert"),
			Message:  aws.String(msg),
		})
		if err != nil {
			logger.Error("abuse alert SNS publish failed", "user_id", userID, "error", err)
		}
	}
}
