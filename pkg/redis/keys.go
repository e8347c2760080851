package redis

import "strings"

const keyspace = "sf"

// joinKey builds "sf:<kind>:<part>..." and drops blank parts.
func joinKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyspace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return joinKey("rate_limit", scope)
}

// CartKey holds one shopper's cart document.
func (c *Client) CartKey(userID string) string {
	return joinKey("cart", userID)
}
