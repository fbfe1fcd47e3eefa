// Package marketplace searches a wholesale marketplace for products the shop
// could buy. The only backend is Canopy's GraphQL view of Amazon search.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"candybowl/internal/apperr"
)

const (
	DefaultBaseURL  = "https://graphql.canopyapi.co/"
	DefaultLimit    = 5
	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 512
)

const searchQuery = `query amazonProduct($searchTerm: String!, $limit: BigInt!) {
  amazonProductSearchResults(input: {searchTerm: $searchTerm}) {
    productResults(input: {limit: $limit}) {
      results {
        asin
        price { value currency }
        rating
        title
        url
        optimizedDescription
      }
    }
  }
}`

// Product is a marketplace listing. It is never persisted.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PriceUSD    float64 `json:"price_usd"`
	URL         string  `json:"url"`
	Rating      float64 `json:"rating"`
}

type Searcher interface {
	Search(ctx context.Context, keywords string, limit int) ([]Product, error)
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

type canopyResponse struct {
	Data struct {
		AmazonProductSearchResults struct {
			ProductResults struct {
				Results []canopyProduct `json:"results"`
			} `json:"productResults"`
		} `json:"amazonProductSearchResults"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type canopyProduct struct {
	ASIN  string `json:"asin"`
	Price *struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
	} `json:"price"`
	Rating               *float64 `json:"rating"`
	Title                string   `json:"title"`
	URL                  string   `json:"url"`
	OptimizedDescription string   `json:"optimizedDescription"`
}

func (p canopyProduct) product() Product {
	out := Product{
		ID:          p.ASIN,
		Name:        p.Title,
		Description: p.OptimizedDescription,
		URL:         p.URL,
	}
	if p.Price != nil {
		out.PriceUSD = p.Price.Value
	}
	if p.Rating != nil {
		out.Rating = *p.Rating
	}
	return out
}

func (c *Client) Search(ctx context.Context, keywords string, limit int) ([]Product, error) {
	const op = "marketplace.search"
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, apperr.New(apperr.KindValidation, op, "search keywords are required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	body, err := json.Marshal(map[string]any{
		"query":     searchQuery,
		"variables": map[string]any{"searchTerm": keywords, "limit": limit},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-KEY", c.apiKey)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("marketplace search failed", "status", resp.StatusCode, "body", truncate(string(raw), maxErrorBodyLen))
		return nil, apperr.Newf(apperr.KindTransport, op, "search failed with status %d", resp.StatusCode)
	}

	var payload canopyResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, op, fmt.Errorf("decode response: %w", err))
	}
	if len(payload.Errors) > 0 {
		return nil, apperr.Newf(apperr.KindTransport, op, "search failed: %s", payload.Errors[0].Message)
	}

	results := payload.Data.AmazonProductSearchResults.ProductResults.Results
	out := make([]Product, 0, len(results))
	for _, r := range results {
		out = append(out, r.product())
		if len(out) == limit {
			break
		}
	}
	c.logger.Debug("marketplace search", "keywords", keywords, "results", len(out), "duration_ms", time.Since(started).Milliseconds())
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
