// Package jenkins resolves Jenkins jobs to their last successful build and
// the artifacts that build produced.
package jenkins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ci-deployer/src/apperr"
)

// Fetcher loads the metadata tree for a job or build resource URL.
type Fetcher interface {
	FetchTree(ctx context.Context, resourceURL string) (*Tree, error)
}

// Client is a Jenkins JSON API client.
type Client struct {
	baseURL    string
	user       string
	token      string
	httpClient *http.Client
	// downloads can be large WAR files; they are bounded by the caller's context only
	downloadClient *http.Client
}

// NewClient creates a new Jenkins API client authenticating with an API token.
func NewClient(baseURL, user, token string) *Client {
	return &Client{
		baseURL: baseURL,
		user:    user,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		downloadClient: &http.Client{},
	}
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIURL returns the JSON API endpoint for a job or build URL.
func APIURL(resourceURL string) string {
	return strings.TrimRight(resourceURL, "/") + "/api/json"
}

// FetchTree fetches and parses <resourceURL>/api/json. Every failure wraps
// apperr.ErrLoad; timeouts additionally wrap apperr.ErrRemoteTimeout.
func (c *Client) FetchTree(ctx context.Context, resourceURL string) (*Tree, error) {
	url := APIURL(resourceURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: failed to create request: %v", apperr.ErrLoad, url, err)
	}
	req.SetBasicAuth(c.user, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w from %s: %w", apperr.ErrLoad, url, apperr.ErrRemoteTimeout)
		}
		return nil, fmt.Errorf("%w from %s: failed to execute request: %v", apperr.ErrLoad, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w from %s: API request failed with status %d: %s", apperr.ErrLoad, url, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: failed to read response: %v", apperr.ErrLoad, url, err)
	}

	tree, err := ParseTree(body)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %v", apperr.ErrLoad, url, err)
	}
	return tree, nil
}

// Download streams downloadURL into destPath. The file is written under a
// temporary name and renamed into place once complete.
func (c *Client) Download(ctx context.Context, downloadURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.user, c.token)

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("download %s: %w", downloadURL, apperr.ErrRemoteTimeout)
		}
		return fmt.Errorf("%w: download %s: %v", apperr.ErrRemoteOperation, downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: download failed with status %d: %s", apperr.ErrRemoteOperation, resp.StatusCode, string(body))
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create staging file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		if isTimeout(err) {
			return fmt.Errorf("download %s: %w", downloadURL, apperr.ErrRemoteTimeout)
		}
		return fmt.Errorf("%w: reading %s: %v", apperr.ErrRemoteOperation, downloadURL, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	return os.Rename(tmp.Name(), destPath)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
