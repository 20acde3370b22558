package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const userAgent = "spdrive/0.1"

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (graph package) per Go convention "accept interfaces, return structs".
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the Microsoft Graph API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewClient creates a Graph API client.
// baseURL is typically DefaultBaseURL.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// request describes one HTTP call. Pre-authenticated URLs (download URLs,
// upload session URLs) are sent without a bearer token.
type request struct {
	method        string
	url           string
	contentType   string
	body          io.Reader
	contentLength int64
	headers       map[string]string
	anonymous     bool
}

// Do executes an authenticated JSON request against the Graph API.
// The path is appended to the client's base URL.
// The caller is responsible for closing the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req := request{method: method, url: c.baseURL + path, body: body}
	if body != nil {
		req.contentType = "application/json"
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return resp, nil
}

// send performs a single request. Non-2xx responses become *GraphError.
func (c *Client) send(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	if !r.anonymous {
		tok, tokErr := c.token.Token()
		if tokErr != nil {
			return nil, fmt.Errorf("graph: obtaining token: %w", tokErr)
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", userAgent)

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	if r.contentLength > 0 {
		req.ContentLength = r.contentLength
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("graph: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("graph: %s request failed: %w", r.method, err)
	}

	return checkStatus(resp)
}
