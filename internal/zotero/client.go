package zotero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is the Zotero Web API version we speak.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps us well under the server's request throttling.
	RateLimit = 5.0

	// DefaultPageSize is the number of items requested per page.
	DefaultPageSize = 30

	// MaxPageSize is the largest page the API will return.
	MaxPageSize = 100
)

// ProgressFunc is called after each retrieved page with the number of
// objects read so far and the total reported by the server (0 if unknown).
type ProgressFunc func(done, total int)

// Collection is a Zotero collection.
type Collection struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ParentKey string `json:"parent_key,omitempty"`
	NumItems  int    `json:"num_items"`
}

// Client is a rate-limited HTTP client for the Zotero Web API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	library    Library
	pageSize   int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPageSize sets the per-request limit, clamped to 1..MaxPageSize.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		c.pageSize = clampPageSize(n)
	}
}

// WithRateLimit overrides the request rate (requests per second).
func WithRateLimit(limit rate.Limit) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// NewClient creates a client for the given library.
func NewClient(lib Library, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
		library:    lib,
		pageSize:   DefaultPageSize,
	}

	if key := os.Getenv("ZOTERO_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Library returns the library this client reads from.
func (c *Client) Library() Library {
	return c.library
}

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, path string) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests:
		if after := resp.Header.Get("Retry-After"); after != "" {
			return fmt.Errorf("%w: retry after %ss", ErrRateLimited, after)
		}
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Path: path}
	}
	return nil
}

// get performs a GET against a library-relative path and returns the body
// together with the Total-Results header (0 when absent).
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	fullPath := "/" + c.library.Path() + path
	reqURL := c.baseURL + fullPath
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", APIVersion)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, fullPath); err != nil {
		return nil, 0, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	total, _ := strconv.Atoi(resp.Header.Get("Total-Results"))
	return body, total, nil
}

// pageParams builds the query for one page.
func (c *Client) pageParams(start int) url.Values {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("start", strconv.Itoa(start))
	return params
}

// paginate reads successive pages from path until the server returns an
// empty page.
func (c *Client) paginate(ctx context.Context, path string, progress ProgressFunc) ([]Record, error) {
	var all []Record
	for {
		body, total, err := c.get(ctx, path, c.pageParams(len(all)))
		if err != nil {
			return nil, err
		}
		page, err := ParseRecords(body)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if progress != nil {
			progress(len(all), total)
		}
	}
	return all, nil
}

// Items retrieves every item in the library.
func (c *Client) Items(ctx context.Context, progress ProgressFunc) ([]Record, error) {
	return c.paginate(ctx, "/items", progress)
}

// CollectionItems retrieves every item in the given collection.
func (c *Client) CollectionItems(ctx context.Context, collectionKey string, progress ProgressFunc) ([]Record, error) {
	if collectionKey == "" {
		return nil, fmt.Errorf("collection key is required")
	}
	return c.paginate(ctx, "/collections/"+url.PathEscape(collectionKey)+"/items", progress)
}

// apiCollection is the wire form of a collection.
type apiCollection struct {
	Key  string `json:"key"`
	Meta struct {
		NumItems int `json:"numItems"`
	} `json:"meta"`
	Data struct {
		Name string `json:"name"`
		// parentCollection is either false or a collection key.
		ParentCollection json.RawMessage `json:"parentCollection"`
	} `json:"data"`
}

func (a apiCollection) toCollection() Collection {
	col := Collection{Key: a.Key, Name: a.Data.Name, NumItems: a.Meta.NumItems}
	var parent string
	if json.Unmarshal(a.Data.ParentCollection, &parent) == nil {
		col.ParentKey = parent
	}
	return col
}

// Collections lists the library's collections whose name contains filter
// (case-insensitive). An empty filter returns all collections.
func (c *Client) Collections(ctx context.Context, filter string) ([]Collection, error) {
	needle := strings.ToLower(filter)
	var out []Collection
	start := 0
	for {
		body, _, err := c.get(ctx, "/collections", c.pageParams(start))
		if err != nil {
			return nil, err
		}
		var page []apiCollection
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("%w: parsing collections: %v", ErrInvalidResponse, err)
		}
		if len(page) == 0 {
			break
		}
		start += len(page)
		for _, a := range page {
			col := a.toCollection()
			if needle == "" || strings.Contains(strings.ToLower(col.Name), needle) {
				out = append(out, col)
			}
		}
	}
	return out, nil
}
