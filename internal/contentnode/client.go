package contentnode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"snapback/internal/clock"
	"snapback/internal/httpclient"
	"snapback/internal/replica"
)

// Client calls other content nodes. It is safe for concurrent use.
type Client struct {
	client *retryablehttp.Client
	logger *zap.Logger
}

// Opt configures a Client.
type Opt func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets the retrying HTTP client.
func WithHTTPClient(client *retryablehttp.Client) Opt {
	return func(c *Client) {
		c.client = client
	}
}

// New creates a Client.
func New(opts ...Opt) *Client {
	c := &Client{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = httpclient.New(httpclient.DefaultConfig(), c.logger)
	}
	return c
}

func endpointURL(endpoint string, query url.Values, path ...string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	u = u.JoinPath(path...)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// BatchClockStatus returns the clocks endpoint reports for wallets. Wallets
// the node does not know are absent from the result.
func (c *Client) BatchClockStatus(ctx context.Context, endpoint string, wallets []string) (clock.Snapshot, error) {
	target, err := endpointURL(endpoint, nil, "users", "batch_clock_status")
	if err != nil {
		return nil, err
	}
	var res BatchClockResponse
	req := BatchClockRequest{WalletPublicKeys: wallets}
	if err := httpclient.Do(ctx, c.client, http.MethodPost, target, req, &res); err != nil {
		return nil, fmt.Errorf("batch clock status from %s: %w", endpoint, err)
	}
	out := clock.New()
	for _, u := range res.Users {
		if u.Clock < 0 {
			continue
		}
		out.Set(u.WalletPublicKey, u.Clock)
	}
	return out, nil
}

// ClockStatus returns endpoint's clock for wallet, clock.Unreported when
// the node does not know it.
func (c *Client) ClockStatus(ctx context.Context, endpoint, wallet string) (int64, error) {
	target, err := endpointURL(endpoint, nil, "users", "clock_status", wallet)
	if err != nil {
		return 0, err
	}
	var res ClockStatusResponse
	if err := httpclient.Do(ctx, c.client, http.MethodGet, target, nil, &res); err != nil {
		return 0, fmt.Errorf("clock status of %s from %s: %w", wallet, endpoint, err)
	}
	return res.ClockValue, nil
}

// RequestSync asks endpoint to sync the wallets of payload from its primary.
func (c *Client) RequestSync(ctx context.Context, endpoint string, payload replica.SyncPayload) error {
	target, err := endpointURL(endpoint, nil, "sync")
	if err != nil {
		return err
	}
	if err := httpclient.Do(ctx, c.client, http.MethodPost, target, payload, nil); err != nil {
		return fmt.Errorf("request sync on %s: %w", endpoint, err)
	}
	c.logger.Debug("sync requested",
		zap.String("secondary", endpoint),
		zap.Strings("wallets", payload.Wallet),
		zap.String("type", string(payload.SyncType)),
	)
	return nil
}

// Export fetches wallet's records from endpoint starting at clock from.
func (c *Client) Export(ctx context.Context, endpoint, wallet string, from int64) (ExportResponse, error) {
	target, err := endpointURL(endpoint, url.Values{
		"wallet_public_key": {wallet},
		"clock_range_min":   {strconv.FormatInt(from, 10)},
	}, "export")
	if err != nil {
		return ExportResponse{}, err
	}
	var res ExportResponse
	if err := httpclient.Do(ctx, c.client, http.MethodGet, target, nil, &res); err != nil {
		return ExportResponse{}, fmt.Errorf("export %s from %s: %w", wallet, endpoint, err)
	}
	return res, nil
}
