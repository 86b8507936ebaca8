package antiplagiat

import (
	"context"

	"golang.org/x/time/rate"

	"originality_sync/internal/domain/remote"
)

// RateLimitedClient paces calls to the wrapped client. A call whose context
// ends while waiting for a token fails as a transport error.
type RateLimitedClient struct {
	next    remote.Client
	limiter *rate.Limiter
}

func NewRateLimitedClient(next remote.Client, rps float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimitedClient{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return remote.TransportError(err)
	}
	return nil
}

func (c *RateLimitedClient) Upload(ctx context.Context, u remote.Upload) (remote.DocumentID, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.next.Upload(ctx, u)
}

func (c *RateLimitedClient) UpdateAttributes(ctx context.Context, id remote.DocumentID, attrs remote.Attributes) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.next.UpdateAttributes(ctx, id, attrs)
}

func (c *RateLimitedClient) StartCheck(ctx context.Context, id remote.DocumentID) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.next.StartCheck(ctx, id)
}

func (c *RateLimitedClient) GetStatus(ctx context.Context, id remote.DocumentID) (*remote.StatusReport, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GetStatus(ctx, id)
}

func (c *RateLimitedClient) SetIndexed(ctx context.Context, id remote.DocumentID, addToIndex bool) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.next.SetIndexed(ctx, id, addToIndex)
}

func (c *RateLimitedClient) GetReport(ctx context.Context, id remote.DocumentID) (*remote.Summary, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GetReport(ctx, id)
}

func (c *RateLimitedClient) CheckAccountStatus(ctx context.Context, creds remote.Credentials) (*remote.AccountStatus, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.CheckAccountStatus(ctx, creds)
}
