package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Client talks to the shop's file share over its drive-style REST API using
// client-credential tokens. Intake workbooks come down, queue snapshots go up.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	folder       string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Folder       string
	Timeout      time.Duration
}

type File struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		folder:       cfg.Folder,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *Client) List(ctx context.Context) ([]File, error) {
	u := fmt.Sprintf("%s/files?folder=%s", c.baseURL, url.QueryEscape(c.folder))

	body, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list remote files: %w", err)
	}

	var listing struct {
		Files []File `json:"files"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse file listing: %w", err)
	}
	return listing.Files, nil
}

func (c *Client) Download(ctx context.Context, remoteName, localPath string) error {
	body, err := c.do(ctx, http.MethodGet, c.contentURL(remoteName), nil, "")
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", remoteName, err)
	}

	if dir := filepath.Dir(localPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create download directory: %w", err)
		}
	}
	if err := os.WriteFile(localPath, body, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localPath, err)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, localPath, remoteName string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	if _, err := c.do(ctx, http.MethodPut, c.contentURL(remoteName), data, "application/octet-stream"); err != nil {
		return fmt.Errorf("failed to upload %s: %w", remoteName, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, remoteName string) error {
	u := fmt.Sprintf("%s/files/%s?folder=%s", c.baseURL, url.PathEscape(remoteName), url.QueryEscape(c.folder))
	if _, err := c.do(ctx, http.MethodDelete, u, nil, ""); err != nil {
		return fmt.Errorf("failed to delete %s: %w", remoteName, err)
	}
	return nil
}

func (c *Client) contentURL(remoteName string) string {
	return fmt.Sprintf("%s/files/%s/content?folder=%s",
		c.baseURL, url.PathEscape(remoteName), url.QueryEscape(c.folder))
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, contentType string) ([]byte, error) {
	resp, err := c.send(ctx, method, u, body, contentType)
	if err != nil {
		return nil, err
	}

	// A rejected token may have been revoked before its expiry, fetch a
	// fresh one and retry once.
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.invalidateToken()
		resp, err = c.send(ctx, method, u, body, contentType)
		if err != nil {
			return nil, err
		}
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http error: %d", resp.StatusCode)
	}
	return respBody, nil
}

func (c *Client) send(ctx context.Context, method, u string, body []byte, contentType string) (*http.Response, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("token request failed: %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	// Refresh a minute early so in-flight requests never carry a token
	// that expires mid-request.
	c.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)

	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
