package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
	"github.com/tarpmill/erp-api/internal/service"
)

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	order, err := s.orderService.CreateOrder(r.Context(), &req)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}

func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{
		Status:     models.OrderStatus(r.URL.Query().Get("status")),
		CustomerID: r.URL.Query().Get("customer_id"),
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.From = parsed
	}

	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.To = parsed.AddDate(0, 0, 1)
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	orders, err := s.orderService.ListOrders(r.Context(), filter, limit, offset)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
}

func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, dispatch, err := s.orderService.GetOrderDetails(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"order":    order,
			"dispatch": dispatch,
		},
	})
}

func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	order, err := s.orderService.UpdateOrderStatus(r.Context(), id, req.Status)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.orderService.DeleteOrder(r.Context(), id); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "order deleted"},
	})
}

func (s *Server) getOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	book, err := s.reportRepo.GetOrderBook(r.Context(), day)

	if err != nil {
		s.logger.Error("Failed to build order book", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build order book")
		return
	}

	recent, err := s.orderService.ListOrders(r.Context(), repository.OrderFilter{}, queryInt(r, "recent", 10), 0)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"counts": book,
			"recent": recent,
		},
	})
}
