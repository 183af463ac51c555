package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client wraps the identity provider's admin API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// DeleteAccount removes the provider account for the subject. A 404 from
// the provider maps to ErrAccountNotFound.
func (c *Client) DeleteAccount(ctx context.Context, subject string) error {
	endpoint := fmt.Sprintf("%s/accounts/%s", c.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return ErrAccountNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("identity: delete account returned status %d", resp.StatusCode)
	}
	return nil
}
