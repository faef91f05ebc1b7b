package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"snapback/internal/httpclient"
	"snapback/internal/replica"
)

var (
	// ErrMalformedResponse is returned when a user entry lacks a required field.
	ErrMalformedResponse = errors.New("malformed discovery response")

	// ErrNoDiscovery is returned when no discovery endpoint is configured.
	ErrNoDiscovery = errors.New("no discovery node selected")

	// ErrUnavailable is returned by Resolve when both query paths failed.
	ErrUnavailable = errors.New("replica sets unavailable from discovery")
)

const (
	nodeUsersPath    = "v1/full/users/content_node/all"
	primaryUsersPath = "users/creator_node"
	latestUserPath   = "latest/user"
)

var requiredFields = []string{"user_id", "wallet", "primary", "secondary1", "secondary2"}

// Client talks to one discovery node.
type Client struct {
	base   string
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

// New creates a client for the discovery node at base. An empty base is
// allowed; every call then fails with ErrNoDiscovery.
func New(base string, opts ...Opt) *Client {
	c := &Client{base: base, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = httpclient.New(httpclient.DefaultConfig(), c.logger)
	}
	return c
}

// Endpoint returns the discovery node c talks to.
func (c *Client) Endpoint() string {
	return c.base
}

func (c *Client) url(path string, query url.Values) (string, error) {
	if c.base == "" {
		return "", ErrNoDiscovery
	}
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("parsing discovery endpoint %q: %w", c.base, err)
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	u = u.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func (c *Client) users(ctx context.Context, path string, query url.Values) ([]replica.Assignment, error) {
	target, err := c.url(path, query)
	if err != nil {
		return nil, err
	}
	var raw []map[string]json.RawMessage
	if err := httpclient.Do(ctx, c.client, http.MethodGet, target, nil, &raw); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return decodeAssignments(raw)
}

// decodeAssignments checks every entry for the required keys before
// decoding it. Null endpoints decode to "".
func decodeAssignments(raw []map[string]json.RawMessage) ([]replica.Assignment, error) {
	out := make([]replica.Assignment, 0, len(raw))
	for i, entry := range raw {
		for _, field := range requiredFields {
			if _, ok := entry[field]; !ok {
				return nil, fmt.Errorf("%w: entry %d missing %q", ErrMalformedResponse, i, field)
			}
		}
		var a replica.Assignment
		if err := json.Unmarshal(entry["user_id"], &a.UserID); err != nil {
			return nil, fmt.Errorf("%w: entry %d user_id: %v", ErrMalformedResponse, i, err)
		}
		fields := map[string]*string{
			"wallet":     &a.Wallet,
			"primary":    &a.Primary,
			"secondary1": &a.Secondary1,
			"secondary2": &a.Secondary2,
		}
		for name, dst := range fields {
			if err := json.Unmarshal(entry[name], dst); err != nil {
				return nil, fmt.Errorf("%w: entry %d %s: %v", ErrMalformedResponse, i, name, err)
			}
		}
		if a.Wallet == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty wallet", ErrMalformedResponse, i)
		}
		out = append(out, a)
	}
	return out, nil
}

// NodeUsers returns every user with endpoint in its replica set.
func (c *Client) NodeUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error) {
	return c.users(ctx, nodeUsersPath, url.Values{"creator_node_endpoint": {endpoint}})
}

// PrimaryUsers returns the users with endpoint as primary. It is the legacy
// query served by older discovery nodes.
func (c *Client) PrimaryUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error) {
	return c.users(ctx, primaryUsersPath, url.Values{"creator_node_endpoint": {endpoint}})
}

// UsersPage returns up to maxUsers users with endpoint in their replica set and
// a user id above prevUserID, in id order.
func (c *Client) UsersPage(ctx context.Context, endpoint string, prevUserID int64, maxUsers int) ([]replica.Assignment, error) {
	return c.users(ctx, nodeUsersPath, url.Values{
		"creator_node_endpoint": {endpoint},
		"prev_user_id":          {strconv.FormatInt(prevUserID, 10)},
		"max_users":             {strconv.Itoa(maxUsers)},
	})
}

// LatestUserID returns the highest user id known to the discovery node.
func (c *Client) LatestUserID(ctx context.Context) (int64, error) {
	target, err := c.url(latestUserPath, nil)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := httpclient.Do(ctx, c.client, http.MethodGet, target, nil, &id); err != nil {
		return 0, fmt.Errorf("GET %s: %w", latestUserPath, err)
	}
	return id, nil
}

// Fetcher is the pair of replica set queries Resolve falls back between.
type Fetcher interface {
	NodeUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error)
	PrimaryUsers(ctx context.Context, endpoint string) ([]replica.Assignment, error)
}

// Resolve returns the users served by endpoint. It tries the full query and
// falls back to the legacy primary-only query when the full query cannot be
// reached. When both fail the error matches ErrUnavailable. A malformed
// response is returned as is and never triggers the fallback.
func Resolve(ctx context.Context, f Fetcher, endpoint string, logger *zap.Logger) ([]replica.Assignment, error) {
	users, err := f.NodeUsers(ctx, endpoint)
	if err == nil {
		return users, nil
	}
	if errors.Is(err, ErrMalformedResponse) {
		return nil, err
	}
	if logger != nil {
		logger.Warn("full replica set query failed, falling back to primary users", zap.Error(err))
	}
	legacy, legacyErr := f.PrimaryUsers(ctx, endpoint)
	if legacyErr == nil {
		return legacy, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(err, legacyErr))
}
