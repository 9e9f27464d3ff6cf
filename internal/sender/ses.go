package sender

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/email-relay/internal/config"
	"github.com/ignite/email-relay/internal/relayerr"
)

// SESProvider delivers through AWS SES v2. Selected by provider.kind "ses".
type SESProvider struct {
	client *sesv2.Client
}

// NewSESProvider creates an SES v2 provider. Static credentials are used
// when configured; otherwise the default chain (IAM role on ECS) applies.
func NewSESProvider(ctx context.Context, cfg config.SESConfig) (*SESProvider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, relayerr.Wrap(relayerr.KindConfiguration, "loading AWS config failed", err)
	}

	return &SESProvider{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Send submits the message through the SES SendEmail API.
func (p *SESProvider) Send(ctx context.Context, msg Message) (Result, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML)},
				},
			},
		},
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return Result{}, relayerr.Wrap(relayerr.KindProvider, "SES rejected the message", err)
	}
	return Result{ID: aws.ToString(out.MessageId)}, nil
}
