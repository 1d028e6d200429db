package cmds

import (
	"context"
	"kelink/internal/backends"
	"kelink/internal/flow"
	"kelink/internal/policy"
	"kelink/internal/pub"
	"os"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	log "github.com/sirupsen/logrus"
)

const (
	BotTokenKey    = "BOT_TOKEN"
	AppIDKey       = "TG_APP_ID"
	AppHashKey     = "TG_APP_HASH"
	SessionFileKey = "TG_SESSION_FILE"
	HTTPPortKey    = "HTTP_PORT"
	WebhookSecret  = "WEBHOOK_SECRET"
	AuditSNSARNKey = "AUDIT_SNS_ARN"
	SNSEndpointKey = "SNS_ENDPOINT"

	DefaultHTTPPort = 8080
)

// engineFromEnv opens the store selected by STORE_BACKEND and builds the engine over it.
func engineFromEnv(opts *RootOptions) (*policy.Engine, error) {
	cfg, err := LoadPolicy(opts.PolicyFile)
	if err != nil {
		return nil, err
	}
	kv, err := backends.StoreFromEnv()
	if err != nil {
		return nil, err
	}
	e, err := policy.New(kv, cfg)
	if err != nil {
		return nil, err
	}
	log.WithField("policy", cfg.String()).Debug("policy loaded")
	return e, nil
}

// auditorFromEnv returns nil when no audit topic is configured.
func auditorFromEnv(ctx context.Context) (flow.Auditor, error) {
	arn := os.Getenv(AuditSNSARNKey)
	if arn == "" {
		return nil, nil
	}
	var snsEndpoint *string
	if se := os.Getenv(SNSEndpointKey); se != "" {
		snsEndpoint = aws.String(se)
	}
	awsCfg, err := backends.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if snsEndpoint != nil {
			o.BaseEndpoint = snsEndpoint
			if o.Region == "" {
				o.Region = "us-east-1"
			}
			o.Credentials = credentials.NewStaticCredentialsProvider("test", "test", "")
		}
	})
	return pub.NewAudit(pub.NewSNS(snsClient), arn), nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
