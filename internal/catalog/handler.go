package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gearhaus/gearhaus/internal/platform/httpx"
	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// ActorHeader identifies the administrator performing configuration changes.
const ActorHeader = "X-Admin-Actor"

// Handler manages catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.showProduct)
	r.Patch("/products/{id}", h.updateProduct)
	r.Get("/products/{id}/variants", h.listVariants)
	r.Post("/products/{id}/variants", h.createVariant)
}

type priceSetRequest struct {
	BasePrice      float64  `json:"base_price" validate:"required,gt=0"`
	SalePrice      *float64 `json:"sale_price" validate:"omitempty,gte=0"`
	WholesalePrice *float64 `json:"wholesale_price" validate:"omitempty,gte=0"`
	GSAPrice       *float64 `json:"gsa_price" validate:"omitempty,gte=0"`
	CostPrice      *float64 `json:"cost_price" validate:"omitempty,gte=0"`
	Unit           string   `json:"price_unit" validate:"required"`
}

func (req priceSetRequest) toPriceSet() pricing.PriceSet {
	return pricing.PriceSet{
		BasePrice:      req.BasePrice,
		SalePrice:      req.SalePrice,
		WholesalePrice: req.WholesalePrice,
		GSAPrice:       req.GSAPrice,
		CostPrice:      req.CostPrice,
		Unit:           pricing.PriceUnit(req.Unit),
	}
}

type createProductRequest struct {
	SKU         string          `json:"sku" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	CategoryID  *int64          `json:"category_id"`
	BrandID     *int64          `json:"brand_id"`
	SupplierID  *int64          `json:"supplier_id"`
	WarehouseID *int64          `json:"warehouse_id"`
	Prices      priceSetRequest `json:"prices" validate:"required"`
	Weight      float64         `json:"weight" validate:"gte=0"`
}

type updateProductRequest struct {
	Name     *string          `json:"name"`
	Prices   *priceSetRequest `json:"prices"`
	Weight   *float64         `json:"weight" validate:"omitempty,gte=0"`
	IsActive *bool            `json:"is_active"`
}

type createVariantRequest struct {
	SKU            string   `json:"sku" validate:"required"`
	Name           string   `json:"name"`
	BasePrice      *float64 `json:"base_price" validate:"omitempty,gt=0"`
	SalePrice      *float64 `json:"sale_price" validate:"omitempty,gte=0"`
	WholesalePrice *float64 `json:"wholesale_price" validate:"omitempty,gte=0"`
	GSAPrice       *float64 `json:"gsa_price" validate:"omitempty,gte=0"`
	CostPrice      *float64 `json:"cost_price" validate:"omitempty,gte=0"`
	Unit           string   `json:"price_unit"`
	Weight         *float64 `json:"weight" validate:"omitempty,gte=0"`
}

type listProductsResponse struct {
	Products   []Product         `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	product, err := h.service.CreateProduct(r.Context(), CreateProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		CategoryID:  req.CategoryID,
		BrandID:     req.BrandID,
		SupplierID:  req.SupplierID,
		WarehouseID: req.WarehouseID,
		Prices:      req.Prices.toPriceSet(),
		Weight:      req.Weight,
		Actor:       r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req updateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateProductInput{
		Name:     req.Name,
		Weight:   req.Weight,
		IsActive: req.IsActive,
		Actor:    r.Header.Get(ActorHeader),
	}
	if req.Prices != nil {
		prices := req.Prices.toPriceSet()
		input.Prices = &prices
	}
	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	products, pagination, err := h.service.ListProducts(r.Context(), ProductFilter{
		Search:     r.URL.Query().Get("q"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, listProductsResponse{Products: products, Pagination: pagination})
}

func (h *Handler) createVariant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req createVariantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	variant, err := h.service.CreateVariant(r.Context(), id, CreateVariantInput{
		SKU:            req.SKU,
		Name:           req.Name,
		BasePrice:      req.BasePrice,
		SalePrice:      req.SalePrice,
		WholesalePrice: req.WholesalePrice,
		GSAPrice:       req.GSAPrice,
		CostPrice:      req.CostPrice,
		Unit:           req.Unit,
		Weight:         req.Weight,
		Actor:          r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, variant)
}

func (h *Handler) listVariants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	variants, err := h.service.ListVariants(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if variants == nil {
		variants = []Variant{}
	}
	httpx.JSON(w, http.StatusOK, variants)
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var mismatch *pricing.UnitMismatchError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrSKUTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrUnitLocked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.As(err, &mismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unit Mismatch", err.Error())
	case errors.Is(err, pricing.ErrInvalidPriceSet), errors.Is(err, pricing.ErrUnknownUnit), errors.Is(err, ErrInvalidWeight):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("catalog request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
