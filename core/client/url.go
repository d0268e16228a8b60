package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	coreerrors "github.com/davidahmann/reportstore/core/errors"
)

const (
	defaultScheme = "http"
	defaultPort   = 8001
)

// ProductURL is the parsed form of a product URL in
// "[http[s]://]host:port/Endpoint" notation.
type ProductURL struct {
	Scheme   string
	Host     string
	Port     int
	Endpoint string
}

// SplitProductURL parses raw into its parts. The scheme defaults to
// http and the port to 8001; the product endpoint is required and must
// be a single path segment.
func SplitProductURL(raw string) (ProductURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ProductURL{}, invalidProductURL(raw, "product URL is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = defaultScheme + "://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ProductURL{}, invalidProductURL(raw, err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ProductURL{}, invalidProductURL(raw, "scheme must be http or https")
	}
	if parsed.Hostname() == "" {
		return ProductURL{}, invalidProductURL(raw, "host is missing")
	}

	port := defaultPort
	if parsed.Port() != "" {
		port, err = strconv.Atoi(parsed.Port())
		if err != nil || port < 1 || port > 65535 {
			return ProductURL{}, invalidProductURL(raw, "port is invalid")
		}
	}

	endpoint := strings.Trim(parsed.Path, "/")
	if endpoint == "" || strings.Contains(endpoint, "/") {
		return ProductURL{}, invalidProductURL(raw, "product endpoint must be a single path segment")
	}

	return ProductURL{
		Scheme:   parsed.Scheme,
		Host:     parsed.Hostname(),
		Port:     port,
		Endpoint: endpoint,
	}, nil
}

// ServerBase returns the server root, without the product endpoint.
func (u ProductURL) ServerBase() string {
	return fmt.Sprintf("%s://%s:%d", u.Scheme, u.Host, u.Port)
}

// String returns the canonical form of the product URL.
func (u ProductURL) String() string {
	return u.ServerBase() + "/" + u.Endpoint
}

func invalidProductURL(raw string, reason string) error {
	return coreerrors.Wrap(
		fmt.Errorf("invalid product URL %q: %s", raw, reason),
		coreerrors.CategoryInvalidInput, "product_url_invalid",
		"use [http[s]://]host:port/Endpoint")
}
