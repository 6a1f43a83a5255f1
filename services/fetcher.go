package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// TextFetcher issues outbound HTTP requests on behalf of the UI
type TextFetcher interface {
	GetText(ctx context.Context, rawURL string, headers map[string]string, params map[string]any) (string, error)
	PostText(ctx context.Context, rawURL string, headers map[string]string, params map[string]any) (string, error)
}

// StatusError is returned for a non-2xx response
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %s", e.Status)
}

// Fetcher forwards requests with a plain http.Client; no retries
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher; a zero timeout means none
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// GetText sends a GET with params as query parameters and returns the body as text
func (f *Fetcher) GetText(ctx context.Context, rawURL string, headers map[string]string, params map[string]any) (string, error) {
	return f.do(ctx, http.MethodGet, rawURL, headers, params)
}

// PostText sends a POST. Params travel as query parameters, not as a body,
// which is what the music-platform clients in the UI expect.
func (f *Fetcher) PostText(ctx context.Context, rawURL string, headers map[string]string, params map[string]any) (string, error) {
	return f.do(ctx, http.MethodPost, rawURL, headers, params)
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string, headers map[string]string, params map[string]any) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url: unsupported scheme %q", u.Scheme)
	}

	if len(params) > 0 {
		q := u.Query()
		for key, value := range params {
			q.Add(key, queryValue(value))
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("request failed", zap.String("method", method), zap.String("host", u.Host), zap.Error(err))
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	text, err := readText(resp)
	if err != nil {
		f.logger.Warn("failed to read response", zap.String("host", u.Host), zap.Error(err))
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return text, nil
}

// readText decodes the body with the charset named in Content-Type, UTF-8 otherwise.
// Invalid bytes become U+FFFD.
func readText(resp *http.Response) (string, error) {
	var body io.Reader = resp.Body

	decoder := xunicode.UTF8.NewDecoder()
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		if label := params["charset"]; label != "" {
			if enc, _ := charset.Lookup(label); enc != nil {
				decoder = enc.NewDecoder()
			}
		}
	}

	data, err := io.ReadAll(transform.NewReader(body, decoder))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// queryValue renders a JSON value as a query string value
func queryValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
