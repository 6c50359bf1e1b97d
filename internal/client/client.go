// Package client calls a running prediction server.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hype-classifier/internal/catalog"
	"hype-classifier/internal/ml"
	"hype-classifier/internal/server"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction api: %d %s", e.Status, e.Message)
}

// Predict classifies one raw record.
func (c *Client) Predict(ctx context.Context, record map[string]any) (*server.PredictionResponse, error) {
	out := &server.PredictionResponse{}
	apiErr := &server.ErrorResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(record).
		SetResult(out).
		SetError(apiErr).
		Post(c.base + "/api/v1/predict")
	if err := check(resp, err, apiErr); err != nil {
		return nil, err
	}
	return out, nil
}

// Model describes the served artifact.
func (c *Client) Model(ctx context.Context) (*ml.ModelInfo, error) {
	out := &ml.ModelInfo{}
	apiErr := &server.ErrorResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(out).
		SetError(apiErr).
		Get(c.base + "/api/v1/model")
	if err := check(resp, err, apiErr); err != nil {
		return nil, err
	}
	return out, nil
}

// Products lists the products matching f.
func (c *Client) Products(ctx context.Context, f catalog.Filter) (*server.ProductsResponse, error) {
	out := &server.ProductsResponse{}
	apiErr := &server.ErrorResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(filterParams(f)).
		SetResult(out).
		SetError(apiErr).
		Get(c.base + "/api/v1/products")
	if err := check(resp, err, apiErr); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductPrediction selects a catalog product and returns its card and
// prediction.
func (c *Client) ProductPrediction(ctx context.Context, f catalog.Filter, name string) (*server.ProductPredictionResponse, error) {
	params := filterParams(f)
	if name != "" {
		params["name"] = name
	}
	out := &server.ProductPredictionResponse{}
	apiErr := &server.ErrorResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		SetError(apiErr).
		Get(c.base + "/api/v1/products/prediction")
	if err := check(resp, err, apiErr); err != nil {
		return nil, err
	}
	return out, nil
}

func filterParams(f catalog.Filter) map[string]string {
	params := make(map[string]string, 2)
	if f.Brand != "" {
		params["brand"] = f.Brand
	}
	if f.Category != "" {
		params["category"] = f.Category
	}
	return params
}

func check(resp *resty.Response, err error, apiErr *server.ErrorResponse) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.String()
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
