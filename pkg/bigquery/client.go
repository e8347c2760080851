// Package bigquery streams order facts into the analytics dataset.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var errNotConnected = errors.New("bigquery: client not connected")

// Client is bound to the order facts table.
type Client struct {
	bq    *bigquery.Client
	facts *bigquery.Table
}

// NewClient connects and reads the facts table metadata, failing when the
// dataset or table has not been provisioned.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.OrderFactsTable)
	switch {
	case project == "":
		return nil, errors.New("bigquery: gcp project id required")
	case dataset == "" || table == "":
		return nil, errors.New("bigquery: dataset and order facts table required")
	}

	opts := []option.ClientOption{}
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(raw)))
	} else if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	bq, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: connect: %w", err)
	}

	c := &Client{bq: bq, facts: bq.Dataset(dataset).Table(table)}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": dataset, "table": table}), "connected to bigquery")
	}
	return c, nil
}

// Ping reads the facts table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.facts == nil {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.facts.Metadata(ctx); err != nil {
		name := c.facts.DatasetID + "." + c.facts.TableID
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return fmt.Errorf("bigquery: %s does not exist", name)
		}
		return fmt.Errorf("bigquery: read %s metadata: %w", name, err)
	}
	return nil
}

// Put streams rows into the facts table. rows is a struct pointer or a slice
// of them, as accepted by the bigquery Inserter.
func (c *Client) Put(ctx context.Context, rows any) error {
	if c == nil || c.facts == nil {
		return errNotConnected
	}
	return c.facts.Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
