package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
)

type createDispatchRequest struct {
	Manifest []models.ManifestEntry `json:"manifest"`
	Meta     models.ShipmentMeta    `json:"meta"`
}

func (s *Server) createDispatchHandler(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req createDispatchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	dispatch, err := s.dispatchService.CreateDispatch(r.Context(), orderID, req.Manifest, req.Meta)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: dispatch})
}

func (s *Server) getDispatchesHandler(w http.ResponseWriter, r *http.Request) {
	status := models.DispatchStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	dispatches, err := s.dispatchService.ListDispatches(r.Context(), status, limit, offset)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dispatches})
}

func (s *Server) getDispatchHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	dispatch, err := s.dispatchService.GetDispatch(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dispatch})
}

func (s *Server) getTodayDispatchesHandler(w http.ResponseWriter, r *http.Request) {
	recent := queryInt(r, "recent", 10)

	summary, dispatches, err := s.dispatchService.TodaySummary(r.Context(), recent)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary":    summary,
			"dispatches": dispatches,
		},
	})
}

func (s *Server) updateDispatchStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status     models.DispatchStatus `json:"status"`
		TrackingID string                `json:"tracking_id,omitempty"`
		Remarks    string                `json:"remarks,omitempty"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	dispatch, err := s.dispatchService.UpdateDispatchStatus(r.Context(), id, req.Status, req.TrackingID, req.Remarks)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dispatch})
}

func (s *Server) syncDispatchHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	dispatch, err := s.dispatchService.SyncDispatch(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dispatch})
}
