package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarpmill/erp-api/internal/models"
	"github.com/tarpmill/erp-api/internal/repository"
	"github.com/tarpmill/erp-api/internal/sequence"
	apperrors "github.com/tarpmill/erp-api/pkg/errors"
	"github.com/tarpmill/erp-api/pkg/logger"
	"github.com/tarpmill/erp-api/pkg/retry"
)

// Item ID numbering spaces for the two finished-good forms and raw materials
const (
	rollIDPrefix     = "TR"
	bundleIDPrefix   = "TB"
	materialIDPrefix = "RM-"
)

// AddProductRequest carries the fields accepted when adding finished goods
type AddProductRequest struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Category        string  `json:"category,omitempty"`
	GSM             int     `json:"gsm,omitempty"`
	ColorTop        string  `json:"color_top,omitempty"`
	ColorBottom     string  `json:"color_bottom,omitempty"`
	Width           float64 `json:"width,omitempty"`
	Length          float64 `json:"length,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	RollType        string  `json:"roll_type,omitempty"`
	PiecesPerBundle int     `json:"pieces_per_bundle,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	Price           float64 `json:"price"`
	Stock           int     `json:"stock"`
	ReorderLevel    int     `json:"reorder_level,omitempty"`
	Remarks         string  `json:"remarks,omitempty"`
}

// AddRawMaterialRequest carries the fields accepted at raw material intake
type AddRawMaterialRequest struct {
	Name         string  `json:"name"`
	Supplier     string  `json:"supplier,omitempty"`
	Category     string  `json:"category,omitempty"`
	Stock        int     `json:"stock"`
	Unit         string  `json:"unit"`
	Price        float64 `json:"price"`
	GSTPercent   float64 `json:"gst_percent,omitempty"`
	ReorderLevel int     `json:"reorder_level,omitempty"`
	Remarks      string  `json:"remarks,omitempty"`
}

// RawMaterialIntake is the result of an intake: the stored material plus the
// GST-inclusive purchase total for the received quantity
type RawMaterialIntake struct {
	Material     *models.RawMaterial `json:"material"`
	TotalWithGST float64             `json:"total_with_gst"`
}

// InventoryService owns all stock writes for products and raw materials
type InventoryService struct {
	productRepo   *repository.ProductRepository
	materialRepo  *repository.RawMaterialRepository
	outboxRepo    *repository.OutboxRepository
	productAlloc  *sequence.Allocator
	materialAlloc *sequence.Allocator
	logger        logger.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	productRepo *repository.ProductRepository,
	materialRepo *repository.RawMaterialRepository,
	outboxRepo *repository.OutboxRepository,
	logger logger.Logger,
) *InventoryService {
	return &InventoryService{
		productRepo:   productRepo,
		materialRepo:  materialRepo,
		outboxRepo:    outboxRepo,
		productAlloc:  sequence.New(productRepo.LastItemID),
		materialAlloc: sequence.New(materialRepo.LastItemID),
		logger:        logger,
	}
}

// AddProduct adds finished goods to inventory. If a product with the same
// descriptive attribute tuple already exists its stock is incremented through
// the ledger; otherwise a new product is created under a fresh TR/TB item id.
func (s *InventoryService) AddProduct(ctx context.Context, req *AddProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, apperrors.NewInvalidInputError("name is required")
	}
	if req.Stock < 0 {
		return nil, apperrors.NewInvalidInputError("stock cannot be negative")
	}

	productType := models.ProductType(req.Type)
	if productType != models.ProductTypeRoll && productType != models.ProductTypeBundle {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown product type %s", req.Type))
	}

	candidates, err := s.productRepo.GetCandidatesByName(ctx, req.Name)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up existing products")
	}

	matched := models.MatchProduct(candidates, req.Name, req.ColorTop, req.ColorBottom, req.Width, req.Length)

	if len(matched) == 1 && matched[0].Type == productType {
		existing := matched[0]

		adjustment, err := s.productRepo.AdjustStock(ctx, existing.ID, req.Stock, false)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to increment product stock")
		}

		s.logger.Info("Merged intake into existing product",
			"item_id", existing.ItemID, "added", req.Stock, "stock", adjustment.Product.Stock)
		return adjustment.Product, nil
	}

	prefix := rollIDPrefix
	if productType == models.ProductTypeBundle {
		prefix = bundleIDPrefix
	}

	category := req.Category
	if category == "" {
		category = "Tarpaulin"
	}
	unit := req.Unit
	if unit == "" {
		unit = "units"
	}

	now := models.GetCurrentTime()
	product := &models.Product{
		ID:              models.GenerateID("pro"),
		Name:            req.Name,
		Type:            productType,
		Category:        category,
		GSM:             req.GSM,
		ColorTop:        req.ColorTop,
		ColorBottom:     req.ColorBottom,
		Width:           req.Width,
		Length:          req.Length,
		Weight:          req.Weight,
		RollType:        req.RollType,
		PiecesPerBundle: req.PiecesPerBundle,
		Unit:            unit,
		Price:           req.Price,
		Stock:           req.Stock,
		ReorderLevel:    req.ReorderLevel,
		Status:          models.StockStatusFor(req.Stock, req.ReorderLevel),
		Remarks:         req.Remarks,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	createOnce := func() error {
		itemID, err := s.productAlloc.Next(ctx, prefix)
		if err != nil {
			return apperrors.NewInternalError("failed to allocate item id")
		}
		product.ItemID = itemID

		if err := s.productRepo.Create(ctx, product); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateIDError(fmt.Sprintf("item id %s already taken", itemID))
			}
			return apperrors.NewInternalError("failed to create product")
		}
		return nil
	}

	err = retry.Retry(ctx, createOnce, &retry.RetryConfig{
		MaxAttempts:     allocationAttempts,
		BackoffStrategy: &retry.ConstantBackoff{Interval: 0},
		Logger:          s.logger,
		RetryableErrors: []error{apperrors.ErrDuplicateID},
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Product added", "item_id", product.ItemID, "name", product.Name, "stock", product.Stock)
	return product, nil
}

// AddRawMaterial records a raw material intake under a fresh RM- item id and
// reports the GST-inclusive purchase total
func (s *InventoryService) AddRawMaterial(ctx context.Context, req *AddRawMaterialRequest) (*RawMaterialIntake, error) {
	if req.Name == "" {
		return nil, apperrors.NewInvalidInputError("name is required")
	}
	if req.Unit == "" {
		return nil, apperrors.NewInvalidInputError("unit is required")
	}
	if req.Stock < 0 || req.Price < 0 || req.GSTPercent < 0 {
		return nil, apperrors.NewInvalidInputError("stock, price and gst_percent cannot be negative")
	}

	category := req.Category
	if category == "" {
		category = "Raw Material"
	}

	now := models.GetCurrentTime()
	material := &models.RawMaterial{
		ID:           models.GenerateID("raw"),
		Name:         req.Name,
		Supplier:     req.Supplier,
		Category:     category,
		Stock:        req.Stock,
		Unit:         req.Unit,
		Price:        req.Price,
		ReorderLevel: req.ReorderLevel,
		Status:       models.StockStatusFor(req.Stock, req.ReorderLevel),
		Remarks:      req.Remarks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	createOnce := func() error {
		itemID, err := s.materialAlloc.Next(ctx, materialIDPrefix)
		if err != nil {
			return apperrors.NewInternalError("failed to allocate item id")
		}
		material.ItemID = itemID

		if err := s.materialRepo.Create(ctx, material); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewDuplicateIDError(fmt.Sprintf("item id %s already taken", itemID))
			}
			return apperrors.NewInternalError("failed to create raw material")
		}
		return nil
	}

	err := retry.Retry(ctx, createOnce, &retry.RetryConfig{
		MaxAttempts:     allocationAttempts,
		BackoffStrategy: &retry.ConstantBackoff{Interval: 0},
		Logger:          s.logger,
		RetryableErrors: []error{apperrors.ErrDuplicateID},
	})

	if err != nil {
		return nil, err
	}

	total := req.Price * float64(req.Stock) * (1 + req.GSTPercent/100)

	s.logger.Info("Raw material added", "item_id", material.ItemID, "name", material.Name, "total_with_gst", total)
	return &RawMaterialIntake{Material: material, TotalWithGST: total}, nil
}

// AdjustProductStock moves product stock by delta through the ledger and
// publishes a low_stock event when the result is not healthy
func (s *InventoryService) AdjustProductStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	adjustment, err := s.productRepo.AdjustStock(ctx, id, delta, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to adjust product stock")
	}

	if adjustment.Product.Status != models.StockStatusInStock {
		s.publishLowStock(ctx, adjustment.Product.ID, adjustment.Product.Name,
			adjustment.Product.Stock, adjustment.Product.ReorderLevel, adjustment.Product.Status)
	}

	return adjustment.Product, nil
}

// AdjustMaterialStock moves raw material stock by delta through the ledger
func (s *InventoryService) AdjustMaterialStock(ctx context.Context, id string, delta int) (*models.RawMaterial, error) {
	material, _, err := s.materialRepo.AdjustStock(ctx, id, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("raw material %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to adjust raw material stock")
	}

	if material.Status != models.StockStatusInStock {
		s.publishLowStock(ctx, material.ID, material.Name, material.Stock, material.ReorderLevel, material.Status)
	}

	return material, nil
}

func (s *InventoryService) publishLowStock(ctx context.Context, id, name string, stock, reorderLevel int, status models.StockStatus) {
	msg, err := models.NewLowStockEvent(id, name, stock, reorderLevel, status)
	if err != nil {
		s.logger.Error("Failed to encode low stock event", "error", err)
		return
	}

	if err := s.outboxRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to record low stock event", "error", err)
	}
}

// GetProduct retrieves a product by row ID or item ID
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		product, err = s.productRepo.GetByItemID(ctx, id)
	}

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load product")
	}

	return product, nil
}

// ListProducts retrieves products with an optional status filter
func (s *InventoryService) ListProducts(ctx context.Context, status models.StockStatus, limit, offset int) ([]*models.Product, error) {
	products, err := s.productRepo.GetAll(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list products")
	}
	return products, nil
}

// GetRawMaterial retrieves a raw material by its row ID
func (s *InventoryService) GetRawMaterial(ctx context.Context, id string) (*models.RawMaterial, error) {
	material, err := s.materialRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("raw material %s not found", id))
		}
		return nil, apperrors.NewInternalError("failed to load raw material")
	}
	return material, nil
}

// ListRawMaterials retrieves raw materials with an optional status filter
func (s *InventoryService) ListRawMaterials(ctx context.Context, status models.StockStatus, limit, offset int) ([]*models.RawMaterial, error) {
	materials, err := s.materialRepo.GetAll(ctx, status, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list raw materials")
	}
	return materials, nil
}

// UpdateProduct rewrites a product's descriptive fields
func (s *InventoryService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", product.ID))
		}
		return apperrors.NewInternalError("failed to update product")
	}
	return nil
}

// UpdateRawMaterial rewrites a raw material's descriptive fields
func (s *InventoryService) UpdateRawMaterial(ctx context.Context, material *models.RawMaterial) error {
	if err := s.materialRepo.Update(ctx, material); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError(fmt.Sprintf("raw material %s not found", material.ID))
		}
		return apperrors.NewInternalError("failed to update raw material")
	}
	return nil
}
