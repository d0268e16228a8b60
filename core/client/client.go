// Package client talks to the remote report store over HTTP. It
// implements the product authority and store collaborators the store
// pipeline depends on; the pipeline itself only sees the interfaces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/davidahmann/reportstore/core/store"
)

const maxResponseBytes = int64(10 * 1024 * 1024)

// Options configures a remote store client.
type Options struct {
	// ProductURL locates the product, in [http[s]://]host:port/Endpoint
	// form.
	ProductURL string
	// Token is sent as a bearer token when non-empty.
	Token string
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// Client is an HTTP implementation of the store pipeline's remote
// collaborators. All calls are blocking and unary; no call retries.
type Client struct {
	product    ProductURL
	token      string
	httpClient *http.Client
}

// New parses the product URL and returns a ready client.
func New(options Options) (*Client, error) {
	product, err := SplitProductURL(options.ProductURL)
	if err != nil {
		return nil, err
	}
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		product:    product,
		token:      options.Token,
		httpClient: httpClient,
	}, nil
}

// Product returns the parsed product URL the client targets.
func (c *Client) Product() ProductURL {
	return c.product
}

type productResponse struct {
	ID       int64  `json:"id"`
	Endpoint string `json:"endpoint"`
}

// ResolveProduct looks the product endpoint up on the server.
func (c *Client) ResolveProduct(ctx context.Context) (store.Product, error) {
	var response productResponse
	path := "/v1/products/" + c.product.Endpoint
	if err := c.call(ctx, http.MethodGet, path, nil, &response); err != nil {
		return store.Product{}, fmt.Errorf("resolve product %s: %w", c.product.Endpoint, err)
	}
	return store.Product{ID: response.ID, Endpoint: response.Endpoint}, nil
}

type permissionRequest struct {
	Permission string `json:"permission"`
	ProductID  int64  `json:"product_id"`
}

type permissionResponse struct {
	Granted bool `json:"granted"`
}

// CheckStorePermission asks whether the caller holds store authority
// for the product.
func (c *Client) CheckStorePermission(ctx context.Context, productID int64) (bool, error) {
	request := permissionRequest{Permission: "PRODUCT_STORE", ProductID: productID}
	var response permissionResponse
	if err := c.call(ctx, http.MethodPost, "/v1/permissions/authorized", request, &response); err != nil {
		return false, fmt.Errorf("check permission: %w", err)
	}
	return response.Granted, nil
}

type missingHashesRequest struct {
	Hashes []string `json:"hashes"`
}

type missingHashesResponse struct {
	Missing []string `json:"missing"`
}

// GetMissingContentHashes sends the full distinct hash set in one
// batched query and returns the subset the server does not hold.
func (c *Client) GetMissingContentHashes(ctx context.Context, hashes []string) ([]string, error) {
	request := missingHashesRequest{Hashes: hashes}
	var response missingHashesResponse
	path := "/v1/products/" + c.product.Endpoint + "/missing_content_hashes"
	if err := c.call(ctx, http.MethodPost, path, request, &response); err != nil {
		return nil, fmt.Errorf("get missing content hashes: %w", err)
	}
	return response.Missing, nil
}

type massStoreRequest struct {
	Name    string `json:"name"`
	Tag     string `json:"tag,omitempty"`
	Version string `json:"version"`
	Bundle  string `json:"bundle"`
	Force   bool   `json:"force,omitempty"`
}

// MassStoreRun dispatches the single upload transaction.
func (c *Client) MassStoreRun(ctx context.Context, request store.StoreRequest) error {
	body := massStoreRequest{
		Name:    request.Name,
		Tag:     request.Tag,
		Version: request.Version,
		Bundle:  request.Payload,
		Force:   request.Force,
	}
	path := "/v1/products/" + c.product.Endpoint + "/mass_store_run"
	if err := c.call(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("mass store run: %w", err)
	}
	return nil
}

type statusError struct {
	statusCode int
	body       string
}

func (e statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.statusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.statusCode, e.body)
}

// StatusCode returns the HTTP status that failed the call.
func (e statusError) StatusCode() int {
	return e.statusCode
}

func (c *Client) call(ctx context.Context, method string, path string, requestBody any, responseBody any) error {
	var reader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.product.ServerBase()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return statusError{statusCode: response.StatusCode, body: string(bytes.TrimSpace(payload))}
	}
	if responseBody == nil {
		return nil
	}
	if err := json.Unmarshal(payload, responseBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
