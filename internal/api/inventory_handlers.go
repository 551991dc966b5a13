package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/service"
)

func (s *Server) addProductHandler(w http.ResponseWriter, r *http.Request) {
	var req service.AddProductRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	product, err := s.inventoryService.AddProduct(r.Context(), &req)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: product})
}

func (s *Server) getProductsHandler(w http.ResponseWriter, r *http.Request) {
	status := models.StockStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	products, err := s.inventoryService.ListProducts(r.Context(), status, limit, offset)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: products})
}

func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, err := s.inventoryService.GetProduct(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

func (s *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, err := s.inventoryService.GetProduct(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if !decodeJSONBody(w, r, product) {
		return
	}

	if err := s.inventoryService.UpdateProduct(r.Context(), product); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

func (s *Server) adjustProductStockHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Delta int `json:"delta"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Delta == 0 {
		respondWithError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	product, err := s.inventoryService.AdjustProductStock(r.Context(), id, req.Delta)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

func (s *Server) addRawMaterialHandler(w http.ResponseWriter, r *http.Request) {
	var req service.AddRawMaterialRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	intake, err := s.inventoryService.AddRawMaterial(r.Context(), &req)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: intake})
}

func (s *Server) getRawMaterialsHandler(w http.ResponseWriter, r *http.Request) {
	status := models.StockStatus(r.URL.Query().Get("status"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	materials, err := s.inventoryService.ListRawMaterials(r.Context(), status, limit, offset)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: materials})
}

func (s *Server) getRawMaterialHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	material, err := s.inventoryService.GetRawMaterial(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: material})
}

func (s *Server) updateRawMaterialHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	material, err := s.inventoryService.GetRawMaterial(r.Context(), id)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if !decodeJSONBody(w, r, material) {
		return
	}

	if err := s.inventoryService.UpdateRawMaterial(r.Context(), material); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: material})
}

func (s *Server) adjustMaterialStockHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Delta int `json:"delta"`
	}
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Delta == 0 {
		respondWithError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	material, err := s.inventoryService.AdjustMaterialStock(r.Context(), id, req.Delta)

	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: material})
}
