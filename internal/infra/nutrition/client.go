// Package nutrition is the Open Food Facts client. Product data is opaque
// to the gateway; responses are passed through as key-value documents.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openfit/relay/internal/core/domain"
	"github.com/openfit/relay/internal/resilience"
	"github.com/openfit/relay/internal/resilience/dedup"
)

// Service is the circuit breaker key for this upstream.
const Service = "openfoodfacts"

// Config holds nutrition API settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Product is a nutrition lookup result. Fields carries the raw product
// document unmodified.
type Product struct {
	Code   string         `json:"code"`
	Fields map[string]any `json:"product"`
}

// Client calls the Open Food Facts API through the resilience pipeline.
// Lookups are deduplicated per barcode / search term, so concurrent
// identical requests share one upstream call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pipe       *resilience.Pipeline

	products *dedup.Group[*Product]
	searches *dedup.Group[[]*Product]
}

// NewClient creates a Client.
func NewClient(cfg Config, pipe *resilience.Pipeline) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://world.openfoodfacts.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		pipe:     pipe,
		products: dedup.NewGroup[*Product](),
		searches: dedup.NewGroup[[]*Product](),
	}
}

// ProductByBarcode looks a product up by its barcode.
func (c *Client) ProductByBarcode(ctx context.Context, code string) (*Product, error) {
	key := "product:" + code
	return resilience.ExecuteDeduped(ctx, c.pipe, c.products, key, Service, func(ctx context.Context) (*Product, error) {
		return c.fetchProduct(ctx, code)
	})
}

// Search performs a free-text product search.
func (c *Client) Search(ctx context.Context, terms string) ([]*Product, error) {
	key := "search:" + terms
	return resilience.ExecuteDeduped(ctx, c.pipe, c.searches, key, Service, func(ctx context.Context) ([]*Product, error) {
		return c.fetchSearch(ctx, terms)
	})
}

func (c *Client) fetchProduct(ctx context.Context, code string) (*Product, error) {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(code))

	var body struct {
		Code    string         `json:"code"`
		Status  int            `json:"status"`
		Product map[string]any `json:"product"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	if body.Status == 0 {
		return nil, domain.NewError(domain.KindValidationError,
			fmt.Sprintf("no product found for barcode %s", code))
	}
	return &Product{Code: body.Code, Fields: body.Product}, nil
}

func (c *Client) fetchSearch(ctx context.Context, terms string) ([]*Product, error) {
	endpoint := fmt.Sprintf("%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1",
		c.baseURL, url.QueryEscape(terms))

	var body struct {
		Products []map[string]any `json:"products"`
	}
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	products := make([]*Product, 0, len(body.Products))
	for _, fields := range body.Products {
		code, _ := fields["code"].(string)
		products = append(products, &Product{Code: code, Fields: fields})
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "relay/1.0 (sync gateway)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nutrition api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return httpError(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(domain.KindDataCorruption,
			"nutrition api returned an unreadable response", err)
	}
	return nil
}

func httpError(status int) *domain.AppError {
	msg := fmt.Sprintf("nutrition api returned HTTP %d", status)
	switch {
	case status == http.StatusUnauthorized:
		return domain.NewError(domain.KindAuthenticationFailed, msg)
	case status == http.StatusForbidden:
		return domain.NewError(domain.KindPermissionDenied, msg)
	case status == http.StatusTooManyRequests:
		return domain.NewError(domain.KindQuotaExceeded, msg)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return domain.NewError(domain.KindTimeout, msg)
	case status >= 500:
		return domain.NewError(domain.KindServerError, msg)
	default:
		return domain.NewError(domain.KindNetworkError, msg)
	}
}
