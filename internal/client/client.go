// Package client is a Go client for the pushd HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/GriffinCanCode/AgentOS/push/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/push/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Options configures a Client
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	// Grant is sent with registrations of restricted schemes
	Grant string
}

// DefaultOptions returns settings suited to an interactive CLI
func DefaultOptions() Options {
	return Options{
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

// APIError is a non-2xx response from pushd
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pushd: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the pushd HTTP API
type Client struct {
	resty *resty.Client
}

// New creates a client for the API served at baseURL
func New(baseURL string, opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.Logger = nil

	r := resty.New().
		SetBaseURL(baseURL+"/api/v1").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("User-Agent", "pushctl/1.0").
		SetTransport(retryClient.HTTPClient.Transport).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetError(&APIError{})
	if opts.Grant != "" {
		r.SetHeader(middleware.GrantHeader, opts.Grant)
	}
	return &Client{resty: r}
}

// RegisterRequest is the registration body
type RegisterRequest struct {
	Connection string `json:"connection"`
	Target     string `json:"target"`
	Filter     string `json:"filter,omitempty"`
}

// Register registers a connection for owner
func (c *Client) Register(ctx context.Context, owner types.OwnerID, req RegisterRequest) (types.ConnectionRecord, error) {
	var rec types.ConnectionRecord
	resp, err := c.request(ctx).
		SetPathParam("owner", owner.String()).
		SetBody(req).
		SetResult(&rec).
		Post("/owners/{owner}/connections")
	if err := check(resp, err); err != nil {
		return types.ConnectionRecord{}, err
	}
	return rec, nil
}

// Unregister removes owner's registration of connection
func (c *Client) Unregister(ctx context.Context, owner types.OwnerID, connection string) (bool, error) {
	var out struct {
		Removed bool `json:"removed"`
	}
	resp, err := c.request(ctx).
		SetPathParam("owner", owner.String()).
		SetQueryParam("connection", connection).
		SetResult(&out).
		Delete("/owners/{owner}/connections")
	if err := check(resp, err); err != nil {
		return false, err
	}
	return out.Removed, nil
}

// List returns owner's live connections
func (c *Client) List(ctx context.Context, owner types.OwnerID, onlyAvailable bool) ([]string, error) {
	var out struct {
		Connections []string `json:"connections"`
	}
	resp, err := c.request(ctx).
		SetPathParam("owner", owner.String()).
		SetQueryParam("available", strconv.FormatBool(onlyAvailable)).
		SetResult(&out).
		Get("/owners/{owner}/connections")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Connections, nil
}

// Take collects and clears the arrivals buffered on owner's connection
func (c *Client) Take(ctx context.Context, owner types.OwnerID, connection string) ([]transport.Item, error) {
	var out struct {
		Items []transport.Item `json:"items"`
	}
	resp, err := c.request(ctx).
		SetPathParam("owner", owner.String()).
		SetQueryParam("connection", connection).
		SetResult(&out).
		Post("/owners/{owner}/connections/take")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// RemoveOwner drops every registration of owner
func (c *Client) RemoveOwner(ctx context.Context, owner types.OwnerID) (int, error) {
	var out struct {
		Released int `json:"released"`
	}
	resp, err := c.request(ctx).
		SetPathParam("owner", owner.String()).
		SetResult(&out).
		Delete("/owners/{owner}")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return out.Released, nil
}

// Owners lists owners with live registrations
func (c *Client) Owners(ctx context.Context) ([]types.OwnerID, error) {
	var out struct {
		Owners []types.OwnerID `json:"owners"`
	}
	resp, err := c.request(ctx).SetResult(&out).Get("/owners")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Owners, nil
}

// Lookup returns the record holding connection; ok is false when none does
func (c *Client) Lookup(ctx context.Context, connection string) (types.ConnectionRecord, bool, error) {
	var rec types.ConnectionRecord
	resp, err := c.request(ctx).
		SetQueryParam("connection", connection).
		SetResult(&rec).
		Get("/connections/lookup")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return types.ConnectionRecord{}, false, nil
	}
	if err := check(resp, err); err != nil {
		return types.ConnectionRecord{}, false, err
	}
	return rec, true, nil
}

// Stats returns the raw stats document
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.request(ctx).Get("/stats")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body()), nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.resty.R().
		SetContext(ctx).
		SetHeader(middleware.RequestIDHeader, id.NewRequestID().String())
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("pushd request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr.Code != "" {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return &APIError{Status: resp.StatusCode(), Code: "http_error", Message: resp.Status()}
}
