package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
)

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Company string `json:"company,omitempty"`
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "customer name is required")
		return
	}

	customer := models.NewCustomer(req.Name, req.Email, req.Phone, req.Address, req.Company)

	if err := s.customerRepo.Create(r.Context(), customer); err != nil {
		s.logger.Error("Failed to create customer", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to create customer")
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: customer})
}

func (s *Server) getCustomersHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	customers, err := s.customerRepo.GetAll(r.Context(), limit, offset)

	if err != nil {
		s.logger.Error("Failed to list customers", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: customers})
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	customer, err := s.customerRepo.GetByID(r.Context(), id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "customer not found")
			return
		}

		s.logger.Error("Failed to get customer", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: customer})
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	customer, err := s.customerRepo.GetByID(r.Context(), id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "customer not found")
			return
		}

		s.logger.Error("Failed to get customer", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	var req customerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.Company = req.Company

	if err := s.customerRepo.Update(r.Context(), customer); err != nil {
		s.logger.Error("Failed to update customer", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to update customer")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: customer})
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.customerRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "customer not found")
			return
		}

		s.logger.Error("Failed to delete customer", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to delete customer")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    map[string]string{"message": "customer deleted"},
	})
}
