// Package huawei implements the OEM vendor-lookup collaborator: given a
// raw key it asks the Huawei support catalog for the manufacturer part
// number and model name.
package huawei

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dtk-group/quote-engine/internal/model"
	"github.com/dtk-group/quote-engine/internal/resilience"
)

const (
	propPartNumber = "Part Number"
	propModel      = "Model"
)

// Options configures the client.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second against the vendor endpoint.
	RateLimit float64
	Retry     resilience.RetryConfig
}

// Client queries the vendor catalog endpoint. It satisfies
// alias.VendorLookup.
type Client struct {
	url       string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// New creates a Client. A zero rate limit defaults to 5 req/s.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rl := opts.RateLimit
	if rl <= 0 {
		rl = 5
	}
	return &Client{
		url:       opts.URL,
		userAgent: opts.UserAgent,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rl), 1),
		retry:     opts.Retry,
	}
}

type searchRequest struct {
	Query  string `json:"query"`
	Lang   string `json:"lang"`
	Domain string `json:"domain"`
}

type searchResponse struct {
	Data []struct {
		EntityCardList []struct {
			PropertyKey   string `json:"propertyKey"`
			PropertyValue string `json:"propertyValue"`
		} `json:"entityCardList"`
	} `json:"data"`
}

// PartAndModel returns the (part number, model) pair for a key, or
// (nil, nil) when the catalog has no complete answer. Transient upstream
// failures are retried; the final error is reported to the caller, which
// degrades to substitution-only aliasing.
func (c *Client) PartAndModel(ctx context.Context, key string) (*model.VendorAnnotation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "huawei: rate limit wait")
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*searchResponse, error) {
		return c.search(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		zap.L().Debug("huawei: no data for key", zap.String("key", key))
		return nil, nil
	}

	var ann model.VendorAnnotation
	for _, card := range resp.Data[0].EntityCardList {
		switch card.PropertyKey {
		case propPartNumber:
			ann.PartNumber = card.PropertyValue
		case propModel:
			ann.Model = card.PropertyValue
		}
	}
	if ann.PartNumber == "" || ann.Model == "" {
		zap.L().Debug("huawei: incomplete card for key", zap.String("key", key))
		return nil, nil
	}

	zap.L().Debug("huawei: resolved",
		zap.String("key", key),
		zap.String("part_number", ann.PartNumber),
		zap.String("model", ann.Model),
	)
	return &ann, nil
}

func (c *Client) search(ctx context.Context, key string) (*searchResponse, error) {
	body, err := json.Marshal(searchRequest{Query: key, Lang: "en", Domain: "0"})
	if err != nil {
		return nil, eris.Wrap(err, "huawei: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "huawei: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "huawei: execute request")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, resilience.NewTransientError(
			eris.Errorf("huawei: status %d", httpResp.StatusCode), httpResp.StatusCode)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("huawei: status %d", httpResp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "huawei: decode response")
	}
	return &parsed, nil
}
