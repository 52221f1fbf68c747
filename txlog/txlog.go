// Package txlog is the client for the external transaction log. The ledger
// may ask it to create a linked entry when a loan is created or repaid; the
// returned ID is stored as a foreign reference only.
package txlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cyberkelysoatra/bazarkely-sub000/service"
)

type Config struct {
	BaseAddr             string        `env:"TXLOG_BASE_ADDR"`
	HTTPMaxRetries       int           `env:"TXLOG_HTTP_MAX_RETRY_COUNT" envDefault:"5"`
	HTTPMinRetryDuration time.Duration `env:"TXLOG_HTTP_MIN_RETRY_DURATION" envDefault:"1s"`
	HTTPMaxRetryDuration time.Duration `env:"TXLOG_HTTP_MAX_RETRY_DURATION" envDefault:"30s"`
}

type Client struct {
	baseAddr *url.URL
	client   *http.Client
}

type entryRequest struct {
	Kind        string    `json:"kind"`
	LoanID      string    `json:"loan_id"`
	MemberID    string    `json:"member_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
}

type entryResponse struct {
	ID string `json:"id"`
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

// RecordEntry posts a linked entry and returns its ID.
func (c *Client) RecordEntry(ctx context.Context, entry service.TransactionEntry) (string, error) {
	body, err := json.Marshal(entryRequest{
		Kind:        entry.Kind,
		LoanID:      entry.LoanID,
		MemberID:    entry.MemberID,
		Amount:      entry.Amount.Value,
		Currency:    entry.Amount.Currency,
		Date:        entry.Date,
		Description: entry.Description,
	})
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.joinAddr("/v1/entries"), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending entry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("got non 2xx response: %d", resp.StatusCode)
	}

	var parsed entryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode entry response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("transaction log returned an empty entry ID")
	}
	return parsed.ID, nil
}
