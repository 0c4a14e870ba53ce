package mq

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/postboard/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubClient maps the event stream onto a single Pub/Sub topic. Routing
// keys travel in the AttrRoutingKey attribute and subscribers filter locally.
type PubSubClient struct {
	client             *pubsub.Client
	topicID            string
	subscriptionSuffix string
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig, topicID string) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if strings.TrimSpace(topicID) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &PubSubClient{
		client:             client,
		topicID:            topicID,
		subscriptionSuffix: cfg.SubscriptionSuffix,
	}, nil
}

// Publish sends data to the topic, tagging it with routingKey.
func (p *PubSubClient) Publish(ctx context.Context, routingKey string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(routingKey) == "" {
		return "", errors.New("pubsub routing key is required")
	}

	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return "", err
	}

	attributes := make(map[string]string, len(attrs)+1)
	maps.Copy(attributes, attrs)
	attributes[AttrRoutingKey] = routingKey

	result := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	return result.Get(ctx)
}

// Subscribe receives from the shared subscription and hands over messages
// whose routing key matches pattern. Others are acked and dropped.
func (p *PubSubClient) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	topic, err := p.ensureTopic(ctx)
	if err != nil {
		return err
	}

	sub, err := p.ensureSubscription(ctx, p.topicID+p.subscriptionSuffix, topic)
	if err != nil {
		return err
	}

	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		key := msg.Attributes[AttrRoutingKey]
		if !MatchRoutingKey(pattern, key) {
			msg.Ack()
			return
		}
		message := Message{
			ID:         msg.ID,
			RoutingKey: key,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, message); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubClient) Close() error {
	return p.client.Close()
}

func (p *PubSubClient) ensureTopic(ctx context.Context) (*pubsub.Topic, error) {
	topic := p.client.Topic(p.topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, p.topicID)
	}
	return topic, nil
}

func (p *PubSubClient) ensureSubscription(ctx context.Context, name string, topic *pubsub.Topic) (*pubsub.Subscription, error) {
	sub := p.client.Subscription(name)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateSubscription(ctx, name, pubsub.SubscriptionConfig{Topic: topic})
	}
	return sub, nil
}
