package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tarpmill/erp-api/pkg/circuitbreaker"
	"github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
	"github.com/tarpmill/erp-api/pkg/retry"
)

// CarrierClient talks to the external carrier service for shipment tracking.
// Calls go through a circuit breaker so a down carrier cannot pile up
// timeouts inside request handlers.
type CarrierClient struct {
	baseURL     string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// TrackingResponse represents the carrier's view of a shipment
type TrackingResponse struct {
	TrackingID  string `json:"tracking_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Location    string `json:"location,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Carrier statuses as reported by the tracking endpoint
const (
	CarrierStatusPickedUp  = "picked_up"
	CarrierStatusInTransit = "in_transit"
	CarrierStatusDelivered = "delivered"
	CarrierStatusDelayed   = "delayed"
)

// NewCarrierClient creates a new CarrierClient instance
func NewCarrierClient(baseURL string, logger logger.Logger) *CarrierClient {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
	}

	retryConfig := &retry.RetryConfig{
		MaxAttempts: 3,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      1.5,
			JitterFactor:    0.2,
		},
		Logger: logger,
		RetryableErrors: []error{
			errors.ErrTimeout,
			errors.ErrTemporaryFailure,
			errors.ErrServiceUnavailable,
		},
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 2,
	})

	return &CarrierClient{
		baseURL:     baseURL,
		httpClient:  httpClient,
		logger:      logger,
		retryConfig: retryConfig,
		breaker:     breaker,
	}
}

// GetTrackingStatus fetches the carrier's current status for a tracking ID
func (c *CarrierClient) GetTrackingStatus(ctx context.Context, trackingID string) (*TrackingResponse, error) {
	if !c.breaker.Allow() {
		c.logger.Warn("Carrier circuit breaker open, rejecting call", "trackingID", trackingID)
		return nil, errors.NewTemporaryError("carrier service unavailable")
	}

	url := fmt.Sprintf("%s/api/v1/tracking/%s", c.baseURL, trackingID)

	var response *TrackingResponse

	retryFunc := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
		}

		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)

		if err != nil {
			if err, ok := err.(net.Error); ok && err.Timeout() {
				return errors.NewTimeoutError("tracking request timed out")
			}
			return errors.NewTemporaryError(fmt.Sprintf("failed to reach carrier: %v", err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)

		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
		}

		if resp.StatusCode >= 400 {
			if resp.StatusCode == http.StatusNotFound {
				return errors.NewNotFoundError(fmt.Sprintf("tracking id %s not found", trackingID))
			}

			if resp.StatusCode == http.StatusRequestTimeout {
				return errors.NewTimeoutError("tracking request timed out")
			}

			if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode >= 500 {
				return errors.NewTemporaryError(fmt.Sprintf("carrier service error: %d", resp.StatusCode))
			}

			return errors.NewAppError(
				errors.ErrInternal,
				fmt.Sprintf("carrier service returned error: %d", resp.StatusCode),
				resp.StatusCode,
				false,
			)
		}

		response = &TrackingResponse{}

		if err := json.Unmarshal(body, response); err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to parse response: %v", err))
		}

		if response.Error != "" {
			if response.Code == "TIMEOUT" {
				return errors.NewTimeoutError(response.Error)
			}
			return errors.NewTemporaryError(response.Error)
		}

		return nil
	}

	err := retry.Retry(ctx, retryFunc, c.retryConfig)

	if err != nil {
		c.breaker.Failure()
		c.logger.Error("Failed to get tracking status", "error", err, "trackingID", trackingID)
		return nil, err
	}

	c.breaker.Success()
	return response, nil
}

// GetBreakerMetrics exposes the breaker state for the admin endpoint
func (c *CarrierClient) GetBreakerMetrics() map[string]interface{} {
	return c.breaker.GetMetrics()
}
