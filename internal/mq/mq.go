package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/postboard/apiserver/config"
)

// AttrRoutingKey carries the routing key on backends without native routing.
const AttrRoutingKey = "routing_key"

// Message is a broker-agnostic delivery.
type Message struct {
	ID         string
	RoutingKey string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error nacks it.
type Handler func(ctx context.Context, msg Message) error

// Broker publishes to and consumes from a single named event stream.
// Routing keys are dot separated ("post.created"); subscription patterns
// follow AMQP topic rules where "*" matches one word and "#" zero or more.
type Broker interface {
	Publish(ctx context.Context, routingKey string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, pattern string, handler Handler) error
	Close() error
}

// New connects the broker selected by cfg. It returns nil, nil when events are
// disabled.
func New(ctx context.Context, cfg config.EventsConfig) (Broker, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.EventsBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ, cfg.Channel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.EventsBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub, cfg.Channel)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// MatchRoutingKey reports whether key satisfies an AMQP-style topic pattern.
func MatchRoutingKey(pattern, key string) bool {
	if pattern == "" || pattern == "#" {
		return true
	}
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			rest := pattern[1:]
			for i := 0; i <= len(key); i++ {
				if matchWords(rest, key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
