// Package family is the client for the external family-group membership
// service. Membership CRUD is out of scope for the ledger; it only asks
// which members belong to a group when deriving balances.
package family

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type Config struct {
	BaseAddr             string        `env:"FAMILY_BASE_ADDR"`
	HTTPMaxRetries       int           `env:"FAMILY_HTTP_MAX_RETRY_COUNT" envDefault:"5"`
	HTTPMinRetryDuration time.Duration `env:"FAMILY_HTTP_MIN_RETRY_DURATION" envDefault:"1s"`
	HTTPMaxRetryDuration time.Duration `env:"FAMILY_HTTP_MAX_RETRY_DURATION" envDefault:"30s"`
}

type Client struct {
	baseAddr *url.URL
	client   *http.Client
}

type membersResponse struct {
	MemberIDs []string `json:"member_ids"`
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseAddr)
	if err != nil {
		return nil, fmt.Errorf("parse base addr: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryWaitMax = cfg.HTTPMaxRetryDuration
	client.RetryWaitMin = cfg.HTTPMinRetryDuration
	client.RetryMax = cfg.HTTPMaxRetries
	client.Logger = nil

	return &Client{
		baseAddr: base,
		client:   client.StandardClient(),
	}, nil
}

func (c *Client) joinAddr(p string) string {
	u := *c.baseAddr
	u.Path = path.Join(u.Path, p)
	return u.String()
}

// GroupMembers returns the member IDs of a family group.
func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.joinAddr(fmt.Sprintf("/v1/groups/%s/members", groupID)), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending members request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got non 200 response: %d", resp.StatusCode)
	}

	var parsed membersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode members response: %w", err)
	}
	return parsed.MemberIDs, nil
}
