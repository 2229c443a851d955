package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance writing to stdout
func NewCommands(client *Client) *Commands {
	return &Commands{
		client: client,
		out:    os.Stdout,
	}
}

// Create shortens a URL and displays the result
func (c *Commands) Create(ctx context.Context, originalURL string) error {
	result, err := c.client.CreateLink(ctx, originalURL)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Short URL created:\n")
	fmt.Fprintf(c.out, "Hash: %s\n", result.Hash)
	fmt.Fprintf(c.out, "Short URL: %s\n", result.ShortenedURL)
	fmt.Fprintf(c.out, "Original URL: %s\n", result.URL)
	fmt.Fprintf(c.out, "Remove URL: %s\n", result.RemoveURL)

	return nil
}

// Get retrieves and displays the link record
func (c *Commands) Get(ctx context.Context, hash string) error {
	link, err := c.client.GetLink(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Hash '%s' not found\n", hash)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Link Information:\n")
	fmt.Fprintf(c.out, "Hash: %s\n", link.Hash)
	fmt.Fprintf(c.out, "Original URL: %s\n", link.URL)
	fmt.Fprintf(c.out, "Protocol: %s\n", link.Protocol)
	fmt.Fprintf(c.out, "Domain: %s\n", link.Domain)
	fmt.Fprintf(c.out, "Path: %s\n", link.Path)
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format(time.RFC3339))
	if n := len(link.Visits); n > 0 {
		fmt.Fprintf(c.out, "Last Visit: %s\n", link.Visits[n-1].Date.Format(time.RFC3339))
	} else {
		fmt.Fprintf(c.out, "Last Visit: Never\n")
	}
	fmt.Fprintf(c.out, "Visits: %d\n", len(link.Visits))

	return nil
}

// Resolve prints the original URL for a hash
func (c *Commands) Resolve(ctx context.Context, hash string) error {
	originalURL, err := c.client.ResolveLink(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Hash '%s' not found\n", hash)
			return nil
		}
		return err
	}

	fmt.Fprintln(c.out, originalURL)
	return nil
}

// Delete removes a link using its remove token
func (c *Commands) Delete(ctx context.Context, hash, removeToken string) error {
	result, err := c.client.RemoveLink(ctx, hash, removeToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Fprintf(c.out, "Hash '%s' not found or the remove token is incorrect\n", hash)
			return nil
		}
		return err
	}

	fmt.Fprintln(c.out, result)
	return nil
}
