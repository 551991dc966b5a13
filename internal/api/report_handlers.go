package api

import (
	"net/http"
	"time"

	"github.com/tarpmill/erp-api/internal/models"
)

// reportWindow parses the from/to query parameters, defaulting to the
// last 30 days ending now
func reportWindow(r *http.Request) (time.Time, time.Time, bool) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, false
		}
		from = parsed
	}

	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, false
		}
		// Include the whole end day
		to = parsed.AddDate(0, 0, 1)
	}

	return from, to, true
}

func (s *Server) getDashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	day := time.Now().UTC()
	monthStart := day.AddDate(0, -1, 0)

	book, err := s.reportRepo.GetOrderBook(ctx, day)
	if err != nil {
		s.logger.Error("Failed to build order book", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	revenue, err := s.reportRepo.GetDeliveredRevenue(ctx, monthStart, day)
	if err != nil {
		s.logger.Error("Failed to compute delivered revenue", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	unitsProduced, err := s.reportRepo.GetProductionUnits(ctx, monthStart, day)
	if err != nil {
		s.logger.Error("Failed to compute production units", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	activeCustomers, err := s.reportRepo.GetActiveCustomers(ctx, monthStart, day)
	if err != nil {
		s.logger.Error("Failed to count active customers", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	dispatchSummary, _, err := s.dispatchService.TodaySummary(ctx, 5)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	topSellers, err := s.reportRepo.GetTopSellers(ctx, 5)
	if err != nil {
		s.logger.Error("Failed to get top sellers", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	lowStock, err := s.inventoryService.ListProducts(ctx, models.StockStatusLowStock, 10, 0)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	outOfStock, err := s.inventoryService.ListProducts(ctx, models.StockStatusOutOfStock, 10, 0)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"order_book":        book,
			"delivered_revenue": revenue,
			"units_produced":    unitsProduced,
			"active_customers":  activeCustomers,
			"dispatches_today":  dispatchSummary,
			"top_sellers":       topSellers,
			"low_stock":         lowStock,
			"out_of_stock":      outOfStock,
		},
	})
}

func (s *Server) getSalesReportHandler(w http.ResponseWriter, r *http.Request) {
	from, to, ok := reportWindow(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid date range, expected YYYY-MM-DD")
		return
	}

	ctx := r.Context()

	summary, err := s.reportRepo.GetSalesSummary(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to build sales summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build sales report")
		return
	}

	topProducts, err := s.reportRepo.GetTopProducts(ctx, from, to, 10)
	if err != nil {
		s.logger.Error("Failed to rank products", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build sales report")
		return
	}

	customers, err := s.reportRepo.GetCustomerActivity(ctx, from, to, 10)
	if err != nil {
		s.logger.Error("Failed to rank customers", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build sales report")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: map[string]interface{}{
			"from":         from.Format("2006-01-02"),
			"to":           to.Format("2006-01-02"),
			"summary":      summary,
			"top_products": topProducts,
			"customers":    customers,
		},
	})
}

func (s *Server) getInventoryReportHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.reportRepo.GetInventorySnapshot(r.Context())

	if err != nil {
		s.logger.Error("Failed to build inventory snapshot", "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to build inventory report")
		return
	}

	respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: snapshot})
}
