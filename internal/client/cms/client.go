package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"confeed/internal/config"
)

// Client reads the convention CMS over its Drupal JSON:API. All five
// catalog/schedule views go through the same Get helper so status
// handling and decoding stay uniform.
type Client struct {
	baseURL    string
	locale     string
	httpClient *http.Client
}

type APIError struct {
	Resource string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms: failed to fetch %s (%d): %s", e.Resource, e.Status, e.Body)
}

func New(cfg config.CMSConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://slavcon.sk"
	}
	locale := cfg.Locale
	if locale == "" {
		locale = "sk"
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConns:        cfg.MaxConnections,
		MaxIdleConnsPerHost: cfg.MaxConnections,
		MaxConnsPerHost:     cfg.MaxConnections,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		locale:  locale,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
	}
}

// Get fetches one JSON:API endpoint and decodes the response into out.
// resource names the logical catalog for error reporting; endpoint is
// the path below /jsonapi (e.g. "/taxonomy_term/rocnik").
func (c *Client) Get(ctx context.Context, resource, endpoint string, query url.Values, out any) error {
	fullURL := c.baseURL + "/" + c.locale + "/jsonapi" + endpoint
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Resource: resource, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Resource: resource, Status: resp.StatusCode, Body: "malformed JSON body"}
	}
	return nil
}

// Ping checks upstream reachability; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	return c.Get(ctx, "jsonapi", "", nil, &doc)
}
