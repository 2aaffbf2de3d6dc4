package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client the forwarder needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSForwarder is a bus sink that publishes every event to one SNS topic.
type SNSForwarder struct {
	client   SNSAPI
	topicARN string
}

type envelope struct {
	Event       string          `json:"event"`
	ForwardedAt time.Time       `json:"forwarded_at"`
	Payload     domoutbox.Event `json:"payload"`
}

func NewSNSForwarder(client SNSAPI, topicARN string) *SNSForwarder {
	return &SNSForwarder{client: client, topicARN: topicARN}
}

func (f *SNSForwarder) Name() string { return "sns" }

func (f *SNSForwarder) Forward(ctx context.Context, e domoutbox.Event) error {
	if f.topicARN == "" {
		return fmt.Errorf("sns forward: empty topic arn")
	}
	body, err := json.Marshal(envelope{Event: e.EventName(), ForwardedAt: time.Now().UTC(), Payload: e})
	if err != nil {
		return fmt.Errorf("sns forward: marshal %s: %w", e.EventName(), err)
	}

	_, err = f.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(f.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_name": {DataType: aws.String("String"), StringValue: aws.String(e.EventName())},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", f.topicARN, err)
	}
	return nil
}

// NewSNSClient loads the default AWS configuration. AWS_ENDPOINT, when set,
// points the client at a local emulator such as LocalStack.
func NewSNSClient(ctx context.Context) (*sns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	if endpoint := os.Getenv("AWS_ENDPOINT"); endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return sns.NewFromConfig(cfg), nil
}
