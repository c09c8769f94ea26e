package streamforwarder

import (
	"context"
	"sync"

	"cloud.google.com/go/pubsub"
)

// PubSubPublisher publishes to pubsub://<topic> endpoints of a single project.
type PubSubPublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func NewPubSubPublisher(ctx context.Context, projectID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return newPubSubPublisherWithClient(client), nil
}

func newPubSubPublisherWithClient(client *pubsub.Client) *PubSubPublisher {
	return &PubSubPublisher{
		client: client,
		topics: map[string]*pubsub.Topic{},
	}
}

func (p *PubSubPublisher) getTopic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.topics[name]; !ok {
		p.topics[name] = p.client.Topic(name)
	}
	return p.topics[name]
}

func (p *PubSubPublisher) Supports(endpoint string) bool {
	_, _, err := endpointTarget(endpoint)
	return err == nil
}

func (p *PubSubPublisher) Publish(ctx context.Context, endpoint string, msg *Message) error {
	name, _, err := endpointTarget(endpoint)
	if err != nil {
		return err
	}
	res := p.getTopic(name).Publish(ctx, &pubsub.Message{
		Data: msg.Body,
		Attributes: map[string]string{
			"event_name": string(msg.EventName),
			"record_id":  msg.RecordID,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return err
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for _, topic := range p.topics {
		topic.Stop()
	}
	p.mu.Unlock()
	return p.client.Close()
}
