// Package pubsub publishes and receives storefront order events on Google
// Cloud Pub/Sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	gpubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var errNotConnected = errors.New("pubsub: client not connected")

// Client owns one Pub/Sub connection plus a publisher per topic it has sent to.
type Client struct {
	gcp     *gpubsub.Client
	project string
	cfg     config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*gpubsub.Publisher
}

// NewClient connects and checks that the configured topic and subscription exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("pubsub: gcp project id required")
	}
	conn, err := gpubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: connect: %w", err)
	}
	c := &Client{gcp: conn, project: project, cfg: cfg, publishers: map[string]*gpubsub.Publisher{}}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      project,
			"topic":        cfg.OrdersTopic,
			"subscription": cfg.OrdersSubscription,
		}), "connected to pubsub")
	}
	return c, nil
}

// Ping fetches the configured topic and subscription. Either may be left
// blank by a process that does not use it.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.gcp == nil {
		return errNotConnected
	}
	if name := c.resource("topics", c.cfg.OrdersTopic); name != "" {
		_, err := c.gcp.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		if err := lookupErr("topic", name, err); err != nil {
			return err
		}
	}
	if name := c.resource("subscriptions", c.cfg.OrdersSubscription); name != "" {
		_, err := c.gcp.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		if err := lookupErr("subscription", name, err); err != nil {
			return err
		}
	}
	return nil
}

// Publish sends one message and waits until the server acknowledges it.
func (c *Client) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	pub, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	return pub.Publish(ctx, &gpubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
}

// Receive delivers messages from the orders subscription to fn until ctx ends.
func (c *Client) Receive(ctx context.Context, fn func(context.Context, *gpubsub.Message)) error {
	if c == nil || c.gcp == nil {
		return errNotConnected
	}
	name := c.resource("subscriptions", c.cfg.OrdersSubscription)
	if name == "" {
		return errors.New("pubsub: orders subscription not configured")
	}
	return c.gcp.Subscriber(name).Receive(ctx, fn)
}

// Close flushes pending publishes and releases the connection.
func (c *Client) Close() error {
	if c == nil || c.gcp == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.gcp.Close()
}

func (c *Client) publisher(topic string) (*gpubsub.Publisher, error) {
	if c == nil || c.gcp == nil {
		return nil, errNotConnected
	}
	name := c.resource("topics", topic)
	if name == "" {
		return nil, errors.New("pubsub: topic required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pub, ok := c.publishers[name]
	if !ok {
		pub = c.gcp.Publisher(name)
		c.publishers[name] = pub
	}
	return pub, nil
}

// resource expands a bare id into projects/<project>/<kind>/<id>. Full
// resource names pass through untouched.
func (c *Client) resource(kind, id string) string {
	id = strings.TrimSpace(id)
	if c == nil || id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") {
		return id
	}
	return "projects/" + c.project + "/" + kind + "/" + id
}

func lookupErr(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub: %s %s does not exist", kind, name)
	default:
		return fmt.Errorf("pubsub: get %s %s: %w", kind, name, err)
	}
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
