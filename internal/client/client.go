// Package client is a typed HTTP client for the storefront API, used by the
// checkout flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-api/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// MessageOf returns the server message carried by err, if any.
func MessageOf(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

// Authenticated reports whether requests carry a token.
func (c *Client) Authenticated() bool {
	return c.Token != ""
}

type ValidateDiscountResult struct {
	Message        string  `json:"message"`
	DiscountAmount float64 `json:"discountAmount"`
	Code           string  `json:"code"`
}

// ValidateDiscount asks the server what code takes off totalAmount.
func (c *Client) ValidateDiscount(ctx context.Context, code string, totalAmount float64) (*ValidateDiscountResult, error) {
	body := map[string]any{"code": code, "totalAmount": totalAmount}
	var out ValidateDiscountResult
	if err := c.do(ctx, http.MethodPost, "/api/discounts/validate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaceOrder submits an order and returns it as stored.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductSummary is the slice of a product view a cart line needs.
type ProductSummary struct {
	Name         models.Bilingual   `json:"name"`
	MainImage    string             `json:"mainImage"`
	DisplayPrice float64            `json:"displayPrice"`
	Variations   []models.Variation `json:"variations"`
}

// SKUPrice returns the price of the SKU with the given hex id.
func (p *ProductSummary) SKUPrice(id string) (float64, bool) {
	for _, v := range p.Variations {
		for _, o := range v.Options {
			for _, s := range o.SKUs {
				if s.ID.Hex() == id {
					return s.Price, true
				}
			}
		}
	}
	return 0, false
}

func (c *Client) Product(ctx context.Context, id string) (*ProductSummary, error) {
	var out ProductSummary
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ActiveDiscounts(ctx context.Context) ([]models.Discount, error) {
	var out []models.Discount
	if err := c.do(ctx, http.MethodGet, "/api/discounts/active", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) HeroOffers(ctx context.Context) (*models.HeroOffers, error) {
	var out models.HeroOffers
	if err := c.do(ctx, http.MethodGet, "/api/advertisements/hero-side-offers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&msg); err == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
