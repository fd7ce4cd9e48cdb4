package circle

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stack-service/circle_transfer/internal/domain/entities"
	"github.com/stack-service/circle_transfer/pkg/circuitbreaker"
	apperrors "github.com/stack-service/circle_transfer/pkg/errors"
	"github.com/stack-service/circle_transfer/pkg/idempotency"
	"github.com/stack-service/circle_transfer/pkg/metrics"
	"github.com/stack-service/circle_transfer/pkg/tracing"
)

const (
	// Circle API URLs
	ProductionBaseURL = "https://api.circle.com"
	SandboxBaseURL    = "https://api-sandbox.circle.com"

	defaultTimeout = 30 * time.Second

	serviceName = "circle"
)

// Operation names used in logs, metrics and spans
const (
	OperationListRecipients = "list_recipient_addresses"
	OperationCreateTransfer = "create_business_transfer"
	OperationPing           = "ping"
)

// Config represents Circle API configuration
type Config struct {
	APIKey             string               `json:"api_key"`
	BaseURL            string               `json:"base_url"`
	Environment        entities.Environment `json:"environment"`
	Timeout            time.Duration        `json:"timeout"`
	RecipientsEndpoint string               `json:"recipients_endpoint"`
	TransfersEndpoint  string               `json:"transfers_endpoint"`
	PingEndpoint       string               `json:"ping_endpoint"`
}

// Client represents a Circle business account API client bound to one environment
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *zap.Logger
}

// NewClient creates a new Circle API client. It fails without touching the
// network when the environment is unknown or the API key is empty.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if !config.Environment.IsValid() {
		return nil, apperrors.Configuration(fmt.Sprintf("unknown circle environment %q", config.Environment))
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, apperrors.Configuration(fmt.Sprintf("API key for %s environment is not set", config.Environment)).
			WithDetail("environment", config.Environment.String())
	}

	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	if config.BaseURL == "" {
		if config.Environment == entities.EnvironmentProduction {
			config.BaseURL = ProductionBaseURL
		} else {
			config.BaseURL = SandboxBaseURL
		}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.RecipientsEndpoint == "" {
		config.RecipientsEndpoint = "/v1/businessAccount/wallets/addresses/recipient"
	}
	if config.TransfersEndpoint == "" {
		config.TransfersEndpoint = "/v1/businessAccount/transfers"
	}
	if config.PingEndpoint == "" {
		config.PingEndpoint = "/ping"
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	env := config.Environment.String()
	circuitBreaker := circuitbreaker.New("CircleAPI-"+env, circuitbreaker.DefaultConfig(),
		apperrors.IsCircuitBreakerError,
		func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerStateGauge.WithLabelValues(env).Set(circuitbreaker.StateValue(to))
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		})

	return &Client{
		config:         config,
		httpClient:     httpClient,
		circuitBreaker: circuitBreaker,
		logger:         logger.With(zap.String("environment", env)),
	}, nil
}

// Environment returns the environment the client is bound to
func (c *Client) Environment() entities.Environment {
	return c.config.Environment
}

// ListRecipientAddresses fetches every business recipient address. No filter
// parameters are sent; callers match locally.
func (c *Client) ListRecipientAddresses(ctx context.Context) ([]entities.Recipient, error) {
	var response entities.CircleRecipientListResponse
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return &response, c.classify(OperationListRecipients,
			c.doRequest(ctx, OperationListRecipients, http.MethodGet, c.config.RecipientsEndpoint, nil, &response))
	})
	if err != nil {
		err = c.breakerError(err)
		c.logger.Error("Failed to list recipient addresses", zap.Error(err))
		return nil, err
	}

	if err := response.Validate(); err != nil {
		return nil, apperrors.APIResponse(OperationListRecipients, err.Error())
	}

	c.logger.Debug("Listed recipient addresses", zap.Int("count", len(response.Data)))

	return response.Data, nil
}

// CreateTransfer creates a business transfer. The request must carry its own
// idempotency key. The call is never retried.
func (c *Client) CreateTransfer(ctx context.Context, req entities.CircleTransferRequest) (*entities.CircleTransfer, error) {
	if err := idempotency.ValidateKey(req.IdempotencyKey); err != nil {
		return nil, apperrors.WrapWithType(err, apperrors.ErrorTypeInternal, "INVALID_IDEMPOTENCY_KEY", "create transfer needs a UUID idempotency key")
	}

	var response entities.CircleTransferResponse
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return &response, c.classify(OperationCreateTransfer,
			c.doRequest(ctx, OperationCreateTransfer, http.MethodPost, c.config.TransfersEndpoint, req, &response))
	})
	if err != nil {
		err = c.breakerError(err)
		c.logger.Error("Failed to create transfer",
			zap.String("destinationId", req.Destination.ID),
			zap.String("idempotencyKey", req.IdempotencyKey),
			zap.Error(err))
		return nil, err
	}

	if err := response.Validate(); err != nil {
		return nil, apperrors.APIResponse(OperationCreateTransfer, err.Error())
	}

	c.logger.Info("Created transfer successfully",
		zap.String("transferId", response.Data.ID),
		zap.String("status", string(response.Data.Status)),
		zap.String("destinationId", req.Destination.ID))

	return &response.Data, nil
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, operation, method, endpoint string, requestBody, responseBody interface{}) error {
	url := c.config.BaseURL + endpoint
	env := c.config.Environment.String()

	ctx, span := tracing.Tracer().Start(ctx, "circle."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("circle.environment", env),
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		))
	defer span.End()

	start := time.Now()
	statusLabel := "error"
	defer func() {
		metrics.CircleAPICallsTotal.WithLabelValues(env, operation, statusLabel).Inc()
		metrics.CircleAPICallDuration.WithLabelValues(env, operation).Observe(time.Since(start).Seconds())
	}()

	var reqBody io.Reader
	if requestBody != nil {
		jsonData, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Circle-Transfer-Harness/1.0")
	tracing.InjectTraceContext(ctx, req.Header)

	c.logger.Debug("Making Circle API request",
		zap.String("method", method),
		zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return apperrors.WrapExternal(err, serviceName, "HTTP request failed")
	}
	defer resp.Body.Close()

	statusLabel = strconv.Itoa(resp.StatusCode)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.WrapExternal(err, serviceName, "failed to read response body")
	}

	c.logger.Debug("Received Circle API response",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("statusCode", resp.StatusCode),
		zap.String("body", string(body)))

	if resp.StatusCode >= 400 {
		circleErr := entities.CircleErrorResponse{Message: strings.TrimSpace(string(body))}
		_ = json.Unmarshal(body, &circleErr)
		circleErr.StatusCode = resp.StatusCode
		span.SetStatus(codes.Error, circleErr.Message)
		return circleErr
	}

	if responseBody != nil {
		if err := json.Unmarshal(body, responseBody); err != nil {
			span.SetStatus(codes.Error, "invalid response body")
			return apperrors.WrapAPIResponse(err, operation)
		}
	}

	return nil
}

// classify turns a raw doRequest error into the typed error callers see.
// A 4xx on create transfer means Circle rejected it; every other HTTP error
// is reported as the external service failing.
func (c *Client) classify(operation string, err error) error {
	if err == nil {
		return nil
	}

	var circleErr entities.CircleErrorResponse
	if !errors.As(err, &circleErr) {
		return err
	}

	if operation == OperationCreateTransfer && apperrors.ClassifyHTTPError(circleErr.StatusCode) != apperrors.ErrorTypeExternal {
		appErr := apperrors.WrapTransferCreation(circleErr, circleErr.StatusCode)
		appErr.WithDetail("circle_code", strconv.Itoa(circleErr.Code))
		return appErr
	}

	appErr := apperrors.WrapExternal(circleErr, serviceName, fmt.Sprintf("%s returned HTTP %d", operation, circleErr.StatusCode))
	appErr.StatusCode = circleErr.StatusCode
	return appErr
}

// breakerError maps gobreaker's own rejections onto external errors
func (c *Client) breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.WrapExternal(err, serviceName, "circuit breaker rejected the request")
	}
	return err
}

// HealthCheck performs a health check against Circle API
func (c *Client) HealthCheck(ctx context.Context) error {
	err := c.doRequest(ctx, OperationPing, http.MethodGet, c.config.PingEndpoint, nil, nil)
	if err != nil {
		return fmt.Errorf("circle API health check failed: %w", c.classify(OperationPing, err))
	}

	c.logger.Info("Circle API health check successful")
	return nil
}

// GetMetrics returns circuit breaker metrics for monitoring
func (c *Client) GetMetrics() map[string]interface{} {
	counts := c.circuitBreaker.Counts()
	return map[string]interface{}{
		"circuit_breaker_state": c.circuitBreaker.State().String(),
		"requests":              counts.Requests,
		"consecutive_successes": counts.ConsecutiveSuccesses,
		"consecutive_failures":  counts.ConsecutiveFailures,
		"total_successes":       counts.TotalSuccesses,
		"total_failures":        counts.TotalFailures,
	}
}
