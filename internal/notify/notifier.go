// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"interview-engine/internal/common/config"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
)

// EmailSender is the SES surface the notifier depends on.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// TopicPublisher is the SNS surface the notifier depends on.
type TopicPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier fans a finished feedback report out to the candidate's email and
// the internal SNS topic. Delivery is best effort; failures are logged and do
// not affect the stored report.
type Notifier struct {
	email     EmailSender
	topic     TopicPublisher
	fromEmail string
	snsTopic  string
	enabled   bool
	logger    logger.Logger
}

func NewNotifier(email EmailSender, topic TopicPublisher, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{
		email:     email,
		topic:     topic,
		fromEmail: cfg.FromEmail,
		snsTopic:  cfg.SNSTopic,
		enabled:   cfg.Enabled,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// FeedbackReady notifies both channels that a report exists for the session.
func (n *Notifier) FeedbackReady(ctx context.Context, recipientEmail string, report *models.FeedbackReport) {
	if !n.enabled {
		return
	}

	if err := n.sendEmail(ctx, recipientEmail, report); err != nil {
		n.logger.Error("feedback email delivery failed", map[string]interface{}{
			"sessionId": report.SessionID,
			"error":     err.Error(),
		})
	}

	if err := n.publish(ctx, report); err != nil {
		n.logger.Error("feedback topic publish failed", map[string]interface{}{
			"sessionId": report.SessionID,
			"error":     err.Error(),
		})
	}
}

func (n *Notifier) sendEmail(ctx context.Context, recipient string, report *models.FeedbackReport) error {
	if recipient == "" {
		return nil
	}

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(n.fromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{
				Data: awssdk.String("Your mock interview feedback is ready"),
			},
			Body: &sestypes.Body{
				Text: &sestypes.Content{
					Data: awssdk.String(renderEmailBody(report)),
				},
			},
		},
	})
	return err
}

func (n *Notifier) publish(ctx context.Context, report *models.FeedbackReport) error {
	if n.snsTopic == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event":        "feedback.ready",
		"sessionId":    report.SessionID,
		"overallScore": report.Overall.Score,
		"generatedAt":  report.GeneratedAt,
	})
	if err != nil {
		return err
	}

	_, err = n.topic.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.snsTopic),
		Message:  awssdk.String(string(payload)),
	})
	return err
}

func renderEmailBody(report *models.FeedbackReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score: %d/100\n\n%s\n", report.Overall.Score, report.Overall.Narrative)
	for i, q := range report.PerQuestion {
		fmt.Fprintf(&b, "\nQuestion %d: %s\n", i+1, q.Question)
		if q.Score == 0 {
			b.WriteString("Not answered.\n")
			continue
		}
		fmt.Fprintf(&b, "Score: %d/10\n%s\n", q.Score, q.Narrative)
	}
	return b.String()
}
