// Package api provides a client for the ConfigCat management API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/configcat-cli/internal/models"
)

// DefaultHost is the public management API host.
const DefaultHost = "api.configcat.com"

const (
	maxAttempts       = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
	maxErrorBody      = 2048
)

// ErrUnauthorized is matched by a *StatusError for 401 and 403 responses.
var ErrUnauthorized = errors.New("unauthorized: check the configured API credentials")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match authentication failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Logger receives request diagnostics. *logger.ConsoleLogger satisfies it.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogWarn(message string)
	LogError(message string)
}

// Options configures a Client.
type Options struct {
	// Host is a host name, or a full base URL including the scheme.
	Host     string
	Username string
	Password string
	// Version is reported in the User-Agent header.
	Version string
	// HTTPClient replaces the default client with a 30s timeout.
	HTTPClient *http.Client
	// RetryDelay is the base of the linear backoff between attempts.
	RetryDelay time.Duration
	Logger     Logger
}

// Client talks to the management API with basic authentication.
type Client struct {
	baseURL    string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
	retryDelay time.Duration
	logger     Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Client{
		baseURL:    BaseURL(opts.Host),
		username:   opts.Username,
		password:   opts.Password,
		userAgent:  "ConfigCat-CLI/" + version,
		httpClient: httpClient,
		retryDelay: retryDelay,
		logger:     opts.Logger,
	}
}

// BaseURL turns a host into the API base URL, ending in a slash.
func BaseURL(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/") + "/"
}

// GetProducts returns the products the credentials can access.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "v1/products", nil, &products); err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	return products, nil
}

// GetConfigs returns the configs of a product.
func (c *Client) GetConfigs(ctx context.Context, productID string) ([]models.Config, error) {
	var configs []models.Config
	if err := c.do(ctx, http.MethodGet, "v1/products/"+url.PathEscape(productID)+"/configs", nil, &configs); err != nil {
		return nil, fmt.Errorf("failed to get configs: %w", err)
	}
	return configs, nil
}

// GetFlags returns the active flags of a config.
func (c *Client) GetFlags(ctx context.Context, configID string) ([]models.Flag, error) {
	var flags []models.Flag
	if err := c.do(ctx, http.MethodGet, "v1/configs/"+url.PathEscape(configID)+"/settings", nil, &flags); err != nil {
		return nil, fmt.Errorf("failed to get flags: %w", err)
	}
	return flags, nil
}

// GetDeletedFlags returns the recently deleted flags of a config.
func (c *Client) GetDeletedFlags(ctx context.Context, configID string) ([]models.DeletedFlag, error) {
	var flags []models.DeletedFlag
	if err := c.do(ctx, http.MethodGet, "v1/configs/"+url.PathEscape(configID)+"/deleted-settings", nil, &flags); err != nil {
		return nil, fmt.Errorf("failed to get deleted flags: %w", err)
	}
	return flags, nil
}

// UploadCodeReferences sends scanned references.
func (c *Client) UploadCodeReferences(ctx context.Context, req *models.CodeReferenceRequest) error {
	if err := c.do(ctx, http.MethodPost, "v1/code-references", req, nil); err != nil {
		return fmt.Errorf("failed to upload code references: %w", err)
	}
	return nil
}

// do sends a request, retrying 429 and 5xx responses, and decodes the response
// body into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * c.retryDelay):
			}
		}

		status, err := c.send(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if status == 0 || !retryable(status) {
			return err
		}
		if attempt < maxAttempts {
			c.log(Logger.LogWarn, "%s %s returned %d, retrying (attempt %d/%d)", method, path, status, attempt, maxAttempts)
		}
	}
	c.log(Logger.LogError, "%s %s failed after %d attempts", method, path, maxAttempts)
	return lastErr
}

// send performs one attempt. The returned status is zero when no response arrived.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) (int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}

	requestID := uuid.NewString()
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.log(Logger.LogDebug, "%s %s (request id %s)", method, req.URL, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	c.log(Logger.LogTrace, "%s %s -> %d (request id %s)", method, path, resp.StatusCode, requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// log formats a message and hands it to the logger method at the wanted level.
func (c *Client) log(level func(Logger, string), format string, args ...any) {
	if c.logger != nil {
		level(c.logger, fmt.Sprintf(format, args...))
	}
}
