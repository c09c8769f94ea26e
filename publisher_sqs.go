package streamforwarder

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends messages to the SQS queue whose URL is the endpoint.
type SQSPublisher struct {
	client sqsAPI
}

func NewSQSPublisher(cfg aws.Config) *SQSPublisher {
	return &SQSPublisher{client: sqs.NewFromConfig(cfg)}
}

func (p *SQSPublisher) setClient(client sqsAPI) {
	p.client = client
}

func (p *SQSPublisher) Supports(endpoint string) bool {
	scheme, err := EndpointScheme(endpoint)
	return err == nil && scheme == SchemeSQS
}

func (p *SQSPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(endpoint),
		MessageBody: aws.String(string(msg.Body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventName": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.EventName)),
			},
		},
	})
	return err
}
