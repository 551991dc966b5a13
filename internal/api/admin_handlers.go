package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
)

func (s *Server) getDeadLettersHandler(w http.ResponseWriter, r *http.Request) {
	status := models.DeadLetterStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.DeadLetterStatusPending
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	messages, err := s.dlqRepo.GetMessages(r.Context(), status, limit, offset)

	if err != nil {
		s.logger.Error("Failed to list dead letter messages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to list dead letter messages")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: messages})
}

func (s *Server) deadLetterByID(w http.ResponseWriter, r *http.Request) (*models.DeadLetterMessage, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid message id")
		return nil, false
	}

	msg, err := s.dlqRepo.GetByID(r.Context(), id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "dead letter message not found")
			return nil, false
		}

		s.logger.Error("Failed to get dead letter message", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to get dead letter message")
		return nil, false
	}

	return msg, true
}

func (s *Server) retryDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.deadLetterByID(w, r)
	if !ok {
		return
	}

	if err := s.deadLetterProcessor.ProcessMessage(r.Context(), msg); err != nil {
		s.logger.Error("Dead letter retry failed", "id", msg.ID, "error", err)
		respondWithError(w, http.StatusUnprocessableEntity, "retry failed: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "message reprocessed"},
	})
}

func (s *Server) discardDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.deadLetterByID(w, r)
	if !ok {
		return
	}

	if err := s.dlqRepo.MarkDiscarded(r.Context(), msg.ID); err != nil {
		s.logger.Error("Failed to discard dead letter message", "id", msg.ID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to discard message")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "message discarded"},
	})
}

func (s *Server) getCircuitBreakersHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"carrier": s.carrierClient.GetBreakerMetrics(),
			"kafka":   s.kafkaHandler.GetBreakerMetrics(),
		},
	})
}

func (s *Server) getRateLimitsHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    s.rateLimiter.GetMetrics(),
	})
}

func (s *Server) getInventoryAlertsHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    s.inventoryEvents.RecentAlerts(),
	})
}
