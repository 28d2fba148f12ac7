// Package httpaction adapts outbound HTTP calls to nodes.ActionFunc, so
// an action node can hit a REST endpoint directly instead of routing
// through a host-registered Go callable.
package httpaction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dshills/intentrouter-go/nodes"
)

// New returns a nodes.ActionFunc that issues an HTTP request built from
// its kwargs and reports the response back as the action's result.
// client may be nil, in which case http.DefaultClient is used.
//
// kwargs:
//   - url: target URL (required)
//   - method: "GET" or "POST" (defaults to "GET")
//   - headers: map[string]any of header name to string value
//   - body: request body, for POST
//
// Result: map[string]any{"status_code", "headers", "body"}.
func New(client *http.Client) nodes.ActionFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, kwargs map[string]any) (any, error) {
		urlStr, ok := kwargs["url"].(string)
		if !ok || urlStr == "" {
			return nil, fmt.Errorf("httpaction: url parameter required (string)")
		}

		method := "GET"
		if m, ok := kwargs["method"].(string); ok && m != "" {
			method = strings.ToUpper(m)
		}
		if method != "GET" && method != "POST" {
			return nil, fmt.Errorf("httpaction: unsupported method %q (supported: GET, POST)", method)
		}

		var body io.Reader
		if bodyStr, ok := kwargs["body"].(string); ok && bodyStr != "" {
			body = bytes.NewBufferString(bodyStr)
		}

		req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
		if err != nil {
			return nil, fmt.Errorf("httpaction: build request: %w", err)
		}
		if headers, ok := kwargs["headers"].(map[string]any); ok {
			for key, value := range headers {
				if valueStr, ok := value.(string); ok {
					req.Header.Set(key, valueStr)
				}
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("httpaction: request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("httpaction: read response: %w", err)
		}

		respHeaders := make(map[string]any, len(resp.Header))
		for key, values := range resp.Header {
			if len(values) == 1 {
				respHeaders[key] = values[0]
			} else {
				respHeaders[key] = values
			}
		}

		return map[string]any{
			"status_code": resp.StatusCode,
			"headers":     respHeaders,
			"body":        string(respBody),
		}, nil
	}
}
