package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pomoroom/internal/config"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TopicSweepCompleted is the event name carried by sweep summaries.
const TopicSweepCompleted = "recordings.sweep.completed"

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// PubSubPublisher is an implementation of Publisher using Google Pub/Sub.
type PubSubPublisher struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPublisher creates a new PubSubPublisher using the GCP project from config.
func NewPublisher(ctx context.Context, cfg *config.Config) (*PubSubPublisher, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID is required for Pub/Sub")
	}
	client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &PubSubPublisher{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

// clientOptions points the client at the emulator when one is configured.
func clientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.PubSubEmulatorHost == "" {
		return nil
	}
	return []option.ClientOption{
		option.WithEndpoint(cfg.PubSubEmulatorHost),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
}

// topic returns the cached handle for name. Each handle runs its own
// publish goroutines until Close stops it.
func (p *PubSubPublisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}

// Publish sends the payload to the given Pub/Sub topic and returns the message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.topic(topic)
	result := t.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event": TopicSweepCompleted},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

// Close flushes pending messages of every topic and releases the client.
func (p *PubSubPublisher) Close() error {
	p.mu.Lock()
	for name, t := range p.topics {
		t.Stop()
		delete(p.topics, name)
	}
	p.mu.Unlock()
	return p.client.Close()
}

// NoopPublisher drops every message.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) (string, error) { return "", nil }

// New returns a Pub/Sub publisher when a sweep topic is configured and a
// NoopPublisher otherwise.
func New(ctx context.Context, cfg *config.Config) (Publisher, error) {
	if cfg.PubSubSweepTopic == "" {
		return NoopPublisher{}, nil
	}
	return NewPublisher(ctx, cfg)
}

// SweepCompleted is the payload published after each retention sweep.
type SweepCompleted struct {
	TotalChecked    int       `json:"total_checked"`
	DeletedCount    int       `json:"deleted_count"`
	StorageFailures int       `json:"storage_failures"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Encode marshals the event for Publish.
func (e SweepCompleted) Encode() ([]byte, error) {
	return json.Marshal(e)
}
