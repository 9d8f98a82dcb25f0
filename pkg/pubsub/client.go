// Package pubsub publishes domain events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/haulmart-backend/pkg/config"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

var (
	ErrClientClosed      = errors.New("pubsub client closed")
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoDomainTopic     = errors.New("pubsub domain topic is required")
)

// Message is what the outbox hands to the broker. OrderingKey is only
// honoured when ordered delivery is enabled.
type Message struct {
	Data        []byte
	Attributes  map[string]string
	OrderingKey string
}

type Client struct {
	client  *pubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewClient dials Pub/Sub and fails fast when the domain topic is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		project:    project,
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":   cfg.DomainTopic,
			"ordered": cfg.OrderedDelivery,
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Publish sends msg to topic and blocks until the broker acknowledges it,
// returning the server-assigned message id.
func (c *Client) Publish(ctx context.Context, topic string, msg Message) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	out := &pubsub.Message{Data: msg.Data, Attributes: msg.Attributes}
	if pub.EnableMessageOrdering {
		out.OrderingKey = msg.OrderingKey
	}
	id, err := pub.Publish(ctx, out).Get(ctx)
	if err != nil {
		// An ordered key is paused after a failure until resumed.
		if out.OrderingKey != "" {
			pub.ResumePublish(out.OrderingKey)
		}
		return "", fmt.Errorf("publish to %s: %w", topic, err)
	}
	return id, nil
}

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	if c == nil || c.client == nil {
		return nil, ErrClientClosed
	}
	name := TopicName(c.project, topic)
	if name == "" {
		return nil, fmt.Errorf("topic %q not configured", topic)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if pub, ok := c.publishers[name]; ok {
		return pub, nil
	}
	pub := c.client.Publisher(name)
	pub.EnableMessageOrdering = c.cfg.OrderedDelivery
	c.publishers[name] = pub
	return pub, nil
}

// Ping checks that the domain topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrClientClosed
	}
	if strings.TrimSpace(c.cfg.DomainTopic) == "" {
		return errNoDomainTopic
	}
	name := TopicName(c.project, c.cfg.DomainTopic)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", c.cfg.DomainTopic)
	default:
		return fmt.Errorf("checking topic %q: %w", c.cfg.DomainTopic, err)
	}
}

// Close flushes every publisher before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pubs := c.publishers
	c.publishers = nil
	c.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return c.client.Close()
}

// TopicName expands a bare topic id into its full resource name. Names that
// are already qualified pass through untouched.
func TopicName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
