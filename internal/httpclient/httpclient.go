package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrNoData is returned when a response envelope carries no data field.
var ErrNoData = errors.New("response has no data field")

// Config configures the retrying client.
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry-max"`
	RetryWaitMin time.Duration `mapstructure:"retry-wait-min"`
	RetryWaitMax time.Duration `mapstructure:"retry-wait-max"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: time.Second,
	}
}

// retryableHttpLogger adapts zap to retryablehttp.LeveledLogger.
type retryableHttpLogger struct {
	inner *zap.Logger
}

func (r retryableHttpLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHttpLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHttpLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHttpLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

// New returns a retrying client for cfg.
func New(cfg Config, logger *zap.Logger) *retryablehttp.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Backoff = retryablehttp.LinearJitterBackoff
	client.Logger = &retryableHttpLogger{inner: logger}
	client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		logger.Debug("response received",
			zap.Stringer("url", resp.Request.URL),
			zap.Int("status", resp.StatusCode),
		)
	}
	// return the last response instead of a generic "giving up" error
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Do sends reqBody (JSON encoded, may be nil) and decodes the data field of
// the response envelope into resBody (may be nil).
func Do(ctx context.Context, client *retryablehttp.Client, method, url string, reqBody, resBody any) error {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Method: method, URL: url, Code: res.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if resBody == nil {
		return nil
	}
	return Unwrap(data, resBody)
}

// Unwrap decodes the data field of a {"data": ...} envelope into v.
func Unwrap(data []byte, v any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding response envelope: %w", err)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return ErrNoData
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// Envelope wraps v the way Unwrap expects it.
func Envelope(v any) map[string]any {
	return map[string]any{"data": v}
}
