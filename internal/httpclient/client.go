// Package httpclient talks to a running tidarr daemon over its JSON API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/http/dto"
)

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tidarr: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("tidarr: %s", e.Message)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client wraps an http.Client with JSON encoding and retries of idempotent
// requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryBase  time.Duration
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultClientTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		retryBase:  constants.DefaultRetryBase,
	}
}

// SetRetryBase changes the linear backoff step between retries.
func (c *Client) SetRetryBase(d time.Duration) {
	c.retryBase = d
}

func (c *Client) Items(ctx context.Context) ([]dto.ItemResponse, error) {
	var items []dto.ItemResponse
	err := c.do(ctx, http.MethodGet, "/api/queue", nil, &items)
	return items, err
}

func (c *Client) Item(ctx context.Context, id string) (*dto.ItemResponse, error) {
	var item dto.ItemResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Add(ctx context.Context, req dto.ItemRequest) (*dto.ItemResponse, error) {
	var item dto.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/"+url.PathEscape(id), nil, nil)
}

func (c *Client) RemoveAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/queue", nil, nil)
}

func (c *Client) RemoveFinished(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/finished", nil, nil)
}

func (c *Client) Retry(ctx context.Context, id string) (*dto.ItemResponse, error) {
	var item dto.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/api/queue/"+url.PathEscape(id)+"/retry", nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Output(ctx context.Context, id string) (string, error) {
	var out dto.OutputResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue/"+url.PathEscape(id)+"/output", nil, &out); err != nil {
		return "", err
	}
	return out.Output, nil
}

func (c *Client) Pause(ctx context.Context) (*dto.StatusResponse, error) {
	return c.status(ctx, http.MethodPost, "/api/queue/pause")
}

func (c *Client) Resume(ctx context.Context) (*dto.StatusResponse, error) {
	return c.status(ctx, http.MethodPost, "/api/queue/resume")
}

func (c *Client) Status(ctx context.Context) (*dto.StatusResponse, error) {
	return c.status(ctx, http.MethodGet, "/api/queue/status")
}

func (c *Client) status(ctx context.Context, method, path string) (*dto.StatusResponse, error) {
	var st dto.StatusResponse
	if err := c.do(ctx, method, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) History(ctx context.Context, page, pageSize int) (*dto.HistoryResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	var resp dto.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// do executes one API call. GET and DELETE are retried on transport errors
// and 429/503 answers.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet || method == http.MethodDelete {
		attempts = constants.DefaultRetryCount
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.retryBase
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = decodeError(resp)
			_ = resp.Body.Close()
			continue
		}

		err = decodeResponse(resp, out)
		_ = resp.Body.Close()
		return err
	}
	return lastErr
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body dto.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	}
	return apiErr
}
