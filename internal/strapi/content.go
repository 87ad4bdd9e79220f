package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/winstonacademy/crm-gateway/internal"
)

// Collections are the CRM content types the gateway proxies. Records live
// in Strapi; the gateway only forwards them under the session's token.
var Collections = []string{"students", "agencies", "leads", "timesheets", "users"}

// ListDocuments forwards GET /api/{collection} with the caller's query
// string (pagination, filters, sort) untouched.
func (c *Client) ListDocuments(ctx context.Context, bearer, collection string, query url.Values) (json.RawMessage, error) {
	path := "/api/" + collection
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return c.contentRequest(ctx, http.MethodGet, path, bearer, nil)
}

func (c *Client) GetDocument(ctx context.Context, bearer, collection, id string) (json.RawMessage, error) {
	return c.contentRequest(ctx, http.MethodGet, fmt.Sprintf("/api/%s/%s?populate=*", collection, id), bearer, nil)
}

// CreateDocument wraps the record in the {data: ...} envelope the content
// API expects.
func (c *Client) CreateDocument(ctx context.Context, bearer, collection string, record json.RawMessage) (json.RawMessage, error) {
	return c.contentRequest(ctx, http.MethodPost, "/api/"+collection, bearer, envelope(record))
}

func (c *Client) UpdateDocument(ctx context.Context, bearer, collection, id string, record json.RawMessage) (json.RawMessage, error) {
	return c.contentRequest(ctx, http.MethodPut, fmt.Sprintf("/api/%s/%s", collection, id), bearer, envelope(record))
}

func (c *Client) DeleteDocument(ctx context.Context, bearer, collection, id string) (json.RawMessage, error) {
	return c.contentRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/%s/%s", collection, id), bearer, nil)
}

func envelope(record json.RawMessage) []byte {
	wrapped, _ := json.Marshal(struct {
		Data json.RawMessage `json:"data"`
	}{Data: record})
	return wrapped
}

func (c *Client) contentRequest(ctx context.Context, method, path, bearer string, payload []byte) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("strapi content request failed", "method", method, "path", path, "error", err)
		return nil, internal.ErrUpstreamUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internal.ErrUpstreamUnavailable.WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, internal.ErrUnauthorized.WithMessage("token rejected by backend")
	case resp.StatusCode == http.StatusForbidden:
		return nil, internal.ErrForbidden
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &internal.AppError{
			Type:       internal.ErrorTypeExternal,
			Code:       internal.ErrCodeUpstreamError,
			Message:    errorMessage(body),
			StatusCode: http.StatusBadGateway,
		}
	}

	return json.RawMessage(body), nil
}
