package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/service"
)

func (s *Server) createBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	batch, err := s.productionService.CreateBatch(r.Context(), &req)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: batch})
}

func (s *Server) getProductionScheduleHandler(w http.ResponseWriter, r *http.Request) {
	status := models.ProductionStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	batches, err := s.productionService.GetSchedule(r.Context(), status, limit, offset)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: batches})
}

func (s *Server) getBatchHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	batch, err := s.productionService.GetBatch(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: batch})
}

func (s *Server) updateBatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status models.ProductionStatus `json:"status"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	batch, err := s.productionService.UpdateBatchStatus(r.Context(), id, req.Status)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: batch})
}
