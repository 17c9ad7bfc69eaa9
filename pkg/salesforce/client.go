// Package salesforce provides JWT-authenticated REST API access to Salesforce
// for mirroring report requests as Leads.
package salesforce

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the Salesforce API operations used by the lead mirror.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

// ClientOption configures the Salesforce client.
type ClientOption func(*sfClient)

// WithRateLimit caps calls at rps per second with a burst of the integer
// part of rps. Zero or less leaves calls unthrottled.
func WithRateLimit(rps float64) ClientOption {
	return func(c *sfClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// sfClient wraps a go-salesforce session. The library takes no context, so
// ctx only bounds the rate limiter wait.
type sfClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an authenticated go-salesforce session.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &sfClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call throttles, runs fn, and logs how long the API took.
func (c *sfClient) call(ctx context.Context, op string, fn func() error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "sf: rate limit")
		}
	}
	start := time.Now()
	err := fn()
	zap.L().Debug("sf: api call",
		zap.String("op", op),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	return err
}

func (c *sfClient) Query(ctx context.Context, soql string, out any) error {
	return c.call(ctx, "query", func() error {
		return eris.Wrap(c.sf.Query(soql, out), "sf: query")
	})
}

func (c *sfClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	var id string
	err := c.call(ctx, "insert "+sObjectName, func() error {
		result, err := c.sf.InsertOne(sObjectName, record)
		if err != nil {
			return eris.Wrap(err, fmt.Sprintf("sf: insert %s", sObjectName))
		}
		if !result.Success {
			return eris.New(fmt.Sprintf("sf: insert %s failed: %v", sObjectName, result.Errors))
		}
		id = result.Id
		return nil
	})
	return id, err
}

// UpdateOne updates record id. fields is copied, never modified.
func (c *sfClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	record := maps.Clone(fields)
	if record == nil {
		record = map[string]any{}
	}
	record["Id"] = id
	return c.call(ctx, "update "+sObjectName, func() error {
		return eris.Wrap(c.sf.UpdateOne(sObjectName, record), fmt.Sprintf("sf: update %s %s", sObjectName, id))
	})
}
