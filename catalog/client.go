package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/vecsync/core"
)

const defaultRequestTimeout = 30 * time.Second

// pageResponse mirrors the catalog service's paged payload.
type pageResponse struct {
	Total *int64              `json:"total"`
	Pages *int                `json:"pages"`
	List  []*core.CatalogItem `json:"list"`
}

// Client is an HTTP implementation of Source against the catalog service's
// REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Source = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom http.Client, e.g. one with a stricter timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     slog.Default().With("component", "catalog-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage retrieves one page of catalog items.
func (c *Client) FetchPage(ctx context.Context, query PageQuery) (*Page, error) {
	params := url.Values{}
	params.Set("pageNo", strconv.Itoa(query.PageNo))
	params.Set("pageSize", strconv.Itoa(query.PageSize))
	if query.SortBy != "" {
		params.Set("sortBy", query.SortBy)
	}
	params.Set("isAsc", strconv.FormatBool(query.Ascending))

	endpoint := c.baseURL + "/items/page?" + params.Encode()
	c.logger.Debug("fetching catalog page", "pageNo", query.PageNo, "pageSize", query.PageSize)

	var resp pageResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", query.PageNo, err)
	}

	page := &Page{Items: resp.List}
	if resp.Total != nil {
		page.TotalItems = *resp.Total
	}
	if resp.Pages != nil {
		page.TotalPages = *resp.Pages
	}
	return page, nil
}

// FetchItem retrieves a single catalog item by ID.
func (c *Client) FetchItem(ctx context.Context, id int64) (*core.CatalogItem, error) {
	endpoint := c.baseURL + "/items/" + strconv.FormatInt(id, 10)

	var item core.CatalogItem
	if err := c.getJSON(ctx, endpoint, &item); err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}
	return &item, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrItemNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}
