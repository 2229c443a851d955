package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// Client represents an HTTP client for the link API
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient creates a new link API client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Redirects are the answer to a lookup, not something to follow
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// CreateLink shortens originalURL
func (c *Client) CreateLink(ctx context.Context, originalURL string) (*domain.ShortenResult, error) {
	jsonData, err := json.Marshal(domain.CreateLinkRequest{URL: originalURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var result domain.ShortenResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// GetLink retrieves the link record for hash. Every call counts as a visit.
func (c *Client) GetLink(ctx context.Context, hash string) (*domain.Link, error) {
	resp, err := c.lookup(ctx, hash, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}

	var link domain.Link
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &link, nil
}

// ResolveLink returns the original URL for hash
func (c *Client) ResolveLink(ctx context.Context, hash string) (string, error) {
	resp, err := c.lookup(ctx, hash, "text/plain")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return string(body), nil
}

// RemoveLink deactivates hash using its remove token
func (c *Client) RemoveLink(ctx context.Context, hash, removeToken string) (string, error) {
	target := c.serverURL + "/" + url.PathEscape(hash) + "/remove/" + url.PathEscape(removeToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", responseError(resp)
	}

	var result domain.RemoveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Result, nil
}

func (c *Client) lookup(ctx context.Context, hash, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/"+url.PathEscape(hash), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

// responseError turns a non-success response into an error. A 404 wraps
// domain.ErrNotFound; the server's message is kept when there is one.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := strings.TrimSpace(string(body))
	var errResp domain.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	if resp.StatusCode == http.StatusNotFound {
		if message == "" {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: %s", domain.ErrNotFound, message)
	}

	if message == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, message)
}
