package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-colorable"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fatigue-platform/operator-console/m/v2/internal/domain"
)

const (
	DefaultBaseUrl = "http://localhost:8000/api"

	// DevicePageSize is the page size requested when listing the devices of an employee.
	DevicePageSize = 100

	// maxErrorBodyLength bounds how much of an unstructured error body is copied into a BackendError.
	maxErrorBodyLength = 512
)

var (
	ErrUnexpectedListFormat = errors.New("response is neither a JSON array nor a paginated result")
	ErrInvalidBaseUrl       = errors.New("invalid backend base URL")
)

// MetricsConsumer receives the latency of every request issued to the platform backend.
type MetricsConsumer interface {
	ObserveBackendRequestLatency(operation string, statusCode int, latency time.Duration)
}

// Client implements domain.Backend on top of the platform's REST API.
type Client struct {
	logger        *zap.Logger
	sugaredLogger *zap.SugaredLogger
	atom          *zap.AtomicLevel

	baseUrl    *url.URL
	token      string
	httpClient *http.Client

	// metricsConsumer is used to publish request latencies to Prometheus. May be nil.
	metricsConsumer MetricsConsumer
}

// NewClient creates a new Client issuing requests against baseUrl. An empty token disables the Authorization header.
func NewClient(baseUrl string, token string, timeout time.Duration, atom *zap.AtomicLevel, metricsConsumer MetricsConsumer) (*Client, error) {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	parsed, err := url.Parse(strings.TrimRight(baseUrl, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: \"%s\": %v", ErrInvalidBaseUrl, baseUrl, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: \"%s\"", ErrInvalidBaseUrl, baseUrl)
	}

	client := &Client{
		baseUrl:         parsed,
		token:           token,
		httpClient:      &http.Client{Timeout: timeout},
		metricsConsumer: metricsConsumer,
		atom:            atom,
	}

	zapConfig := zap.NewDevelopmentEncoderConfig()
	zapConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.AddSync(colorable.NewColorableStdout()), atom)
	logger := zap.New(core, zap.Development())
	if logger == nil {
		panic("failed to create logger for backend client")
	}

	client.logger = logger
	client.sugaredLogger = logger.Sugar()

	return client, nil
}

// BaseUrl returns the base URL that requests are issued against.
func (c *Client) BaseUrl() string {
	return c.baseUrl.String()
}

// request describes a single call to the platform backend.
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      interface{}
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := *c.baseUrl
	target.Path = strings.TrimRight(c.baseUrl.Path, "/") + "/" + strings.TrimLeft(path, "/")

	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	return target.String()
}

// do issues the request and returns the response body of a successful (2xx) response.
//
// Transport failures are returned as *domain.NetworkError, and non-2xx responses as *domain.BackendError.
func (c *Client) do(ctx context.Context, r *request) ([]byte, error) {
	var reader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			c.logger.Error("Error encountered while marshalling request payload.", zap.String("operation", r.operation), zap.Error(err))
			return nil, err
		}

		reader = bytes.NewBuffer(payload)
	}

	target := c.endpoint(r.path, r.query)
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		c.logger.Error("Error encountered while creating request.", zap.String("operation", r.operation), zap.String("url", target), zap.Error(err))
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Issuing request to platform backend.", zap.String("operation", r.operation), zap.String("method", r.method), zap.String("url", target))

	sentAt := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request to platform backend failed.", zap.String("operation", r.operation), zap.String("url", target), zap.Error(err))
		c.observe(r.operation, 0, time.Since(sentAt))
		return nil, &domain.NetworkError{Operation: r.operation, Err: err}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(r.operation, resp.StatusCode, time.Since(sentAt))
	if err != nil {
		c.logger.Warn("Failed to read response body.", zap.String("operation", r.operation), zap.Int("status-code", resp.StatusCode), zap.Error(err))
		return nil, &domain.NetworkError{Operation: r.operation, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		{
			c.logger.Debug("Received successful response from platform backend.", zap.String("operation", r.operation), zap.Int("status-code", resp.StatusCode), zap.Duration("latency", time.Since(sentAt)))
			return body, nil
		}
	case http.StatusNotFound:
		{
			c.logger.Warn("Received HTTP 404 'Not Found' from platform backend.", zap.String("operation", r.operation), zap.String("url", target))
			return nil, &domain.BackendError{Operation: r.operation, StatusCode: resp.StatusCode, Message: extractErrorMessage(body)}
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		{
			c.logger.Error("Platform backend rejected the credentials of the console.", zap.String("operation", r.operation), zap.Int("status-code", resp.StatusCode))
			return nil, &domain.BackendError{Operation: r.operation, StatusCode: resp.StatusCode, Message: extractErrorMessage(body)}
		}
	default:
		c.logger.Warn("Unexpected response status code from platform backend.",
			zap.String("operation", r.operation),
			zap.Int("status-code", resp.StatusCode),
			zap.String("status", resp.Status),
			zap.String("response-body", string(body)))

		return nil, &domain.BackendError{Operation: r.operation, StatusCode: resp.StatusCode, Message: extractErrorMessage(body)}
	}
}

// doJSON issues the request and decodes a successful response into out.
func (c *Client) doJSON(ctx context.Context, r *request, out interface{}) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err = json.Unmarshal(body, out); err != nil {
		c.logger.Error("Failed to decode response from platform backend.", zap.String("operation", r.operation), zap.String("body", string(body)), zap.Error(err))
		return err
	}

	return nil
}

func (c *Client) observe(operation string, statusCode int, latency time.Duration) {
	if c.metricsConsumer != nil {
		c.metricsConsumer.ObserveBackendRequestLatency(operation, statusCode, latency)
	}
}

// extractErrorMessage returns the human-readable error carried by a response body, preferring the "message",
// "error" and "detail" fields of a JSON object over the raw body.
func extractErrorMessage(body []byte) string {
	var responseJson map[string]interface{}
	if err := json.Unmarshal(body, &responseJson); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if value, ok := responseJson[key]; ok && value != nil {
				return fmt.Sprintf("%v", value)
			}
		}
	}

	message := strings.TrimSpace(string(body))
	if len(message) > maxErrorBodyLength {
		message = message[:maxErrorBodyLength] + "..."
	}

	return message
}

// paginated is the envelope of a paginated list response.
type paginated[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// decodeList decodes either a bare JSON array or a paginated envelope.
func decodeList[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	case '{':
		var page paginated[T]
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, err
		}

		if page.Results == nil {
			return []T{}, nil
		}
		return page.Results, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedListFormat, string(trimmed[:min(len(trimmed), 32)]))
	}
}

func sessionPath(id int, suffix string) string {
	if suffix == "" {
		return "/simulators/" + strconv.Itoa(id) + "/"
	}

	return "/simulators/" + strconv.Itoa(id) + "/" + suffix + "/"
}
