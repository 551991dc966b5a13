package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger("error")
}

func TestGetTrackingStatusSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tracking/TRK123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tracking_id":"TRK123","status":"in_transit","location":"Nagpur hub"}`))
	}))
	defer server.Close()

	client := NewCarrierClient(server.URL, testLogger())

	resp, err := client.GetTrackingStatus(context.Background(), "TRK123")

	require.NoError(t, err)
	assert.Equal(t, "TRK123", resp.TrackingID)
	assert.Equal(t, CarrierStatusInTransit, resp.Status)
	assert.Equal(t, "Nagpur hub", resp.Location)
}

func TestGetTrackingStatusNotFoundIsNotRetried(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewCarrierClient(server.URL, testLogger())

	_, err := client.GetTrackingStatus(context.Background(), "TRK404")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetTrackingStatusRetriesServerErrors(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tracking_id":"TRK500","status":"delivered"}`))
	}))
	defer server.Close()

	client := NewCarrierClient(server.URL, testLogger())

	resp, err := client.GetTrackingStatus(context.Background(), "TRK500")

	require.NoError(t, err)
	assert.Equal(t, CarrierStatusDelivered, resp.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetTrackingStatusBodyErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"carrier lookup timed out","code":"TIMEOUT"}`))
	}))
	defer server.Close()

	client := NewCarrierClient(server.URL, testLogger())

	_, err := client.GetTrackingStatus(context.Background(), "TRKSLOW")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}

func TestBreakerMetricsExposed(t *testing.T) {
	client := NewCarrierClient("http://localhost:0", testLogger())

	metrics := client.GetBreakerMetrics()

	assert.Equal(t, "closed", metrics["state"])
}
