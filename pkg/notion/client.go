// Package notion writes delivered reports to a Notion ledger database.
package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultRPS is Notion's average request rate limit per integration.
const DefaultRPS = 3

// Client is the part of the Notion API the ledger writes through.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Option configures the client returned by NewClient.
type Option func(*ledgerClient)

// WithRateLimit throttles calls to rps. Zero or less disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *ledgerClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithTimeout bounds each API call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *ledgerClient) {
		c.timeout = d
	}
}

type ledgerClient struct {
	pages   notionapi.PageService
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient creates a Client for the integration token, throttled to
// DefaultRPS with a 30s per-call timeout.
func NewClient(token string, opts ...Option) Client {
	c := &ledgerClient{
		pages:   notionapi.NewClient(notionapi.Token(token)).Page,
		limiter: rate.NewLimiter(DefaultRPS, 1),
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *ledgerClient) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: wait for rate limit")
	}
	return nil
}

func (c *ledgerClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	page, err := c.pages.Create(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: create ledger page")
	}
	zap.L().Debug("notion: ledger page created",
		zap.String("page_id", string(page.ID)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return page, nil
}
