package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/pkg/logger"
)

func TestLoggingHandlerAcceptsOutboxPayload(t *testing.T) {
	event := models.StockDriftData{
		DispatchID:  "DIS001",
		ProductID:   "prd-1",
		ProductName: "Tarpaulin Roll",
		Requested:   10,
		Applied:     7,
		Reason:      "insufficient stock",
	}

	msg, err := models.NewStockDriftEvent(event)
	require.NoError(t, err)

	handler := NewLoggingHandler(logger.NewLogger("error"))

	assert.NoError(t, handler.HandleMessage(context.Background(), msg))
}

func TestLoggingHandlerRejectsMalformedPayload(t *testing.T) {
	msg := &models.OutboxMessage{
		EventType: models.EventStockDrift,
		Payload:   []byte("not json"),
	}

	handler := NewLoggingHandler(logger.NewLogger("error"))

	assert.Error(t, handler.HandleMessage(context.Background(), msg))
}
