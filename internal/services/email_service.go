package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// AWSSESEmailService delivers credential emails using AWS SES.
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

func NewAWSSESEmailService(region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}, nil
}

// SendCredentials mails a provisioned user their username and temporary
// password, with the account expiration date when one is set.
func (s *AWSSESEmailService) SendCredentials(ctx context.Context, email, username, tempPassword string, expiration *time.Time) error {
	expirationLine := ""
	if expiration != nil {
		expirationLine = fmt.Sprintf("Your account expires on %s.\n\n", expiration.Format("January 2, 2006"))
	}

	textBody := fmt.Sprintf(`Your account is ready

An account has been created for you.

Username: %s
Temporary password: %s

Sign in at %s and you will be asked to choose your own password.

%sThis is an automated message. Please do not reply to this email.
`, username, tempPassword, s.baseURL, expirationLine)

	htmlExpiration := ""
	if expiration != nil {
		htmlExpiration = fmt.Sprintf("<p>Your account expires on <strong>%s</strong>.</p>", expiration.Format("January 2, 2006"))
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .credentials { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your account is ready</h1>
        </div>
        <p>An account has been created for you.</p>
        <div class="credentials">
            <p>Username: <code>%s</code><br>
            Temporary password: <code>%s</code></p>
        </div>
        <p>Sign in at <a href="%s">%s</a> and you will be asked to choose your own password.</p>
        %s
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, username, tempPassword, s.baseURL, s.baseURL, htmlExpiration)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account is ready"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send credentials email via SES",
			slog.String("email", email),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("credentials email sent",
		slog.String("email", email),
		slog.String("message_id", *result.MessageId))

	return nil
}
