package discounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gearhaus/gearhaus/internal/platform/httpx"
	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// ActorHeader identifies the administrator performing configuration changes.
const ActorHeader = "X-Admin-Actor"

// Handler manages discount rule endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers discount rule routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.deactivate)
}

type createRuleRequest struct {
	AccountType        string  `json:"account_type" validate:"required"`
	DiscountPercentage float64 `json:"discount_percentage" validate:"gte=0,lte=100"`
	MinimumOrderAmount float64 `json:"minimum_order_amount" validate:"gte=0"`
	CategoryID         *int64  `json:"category_id"`
	BrandID            *int64  `json:"brand_id"`
	SupplierID         *int64  `json:"supplier_id"`
	WarehouseID        *int64  `json:"warehouse_id"`
}

type updateRuleRequest struct {
	DiscountPercentage *float64 `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
	MinimumOrderAmount *float64 `json:"minimum_order_amount" validate:"omitempty,gte=0"`
	IsActive           *bool    `json:"is_active"`
}

type ruleResponse struct {
	Rule
	Source pricing.DiscountSource `json:"source"`
}

type listRulesResponse struct {
	Rules      []ruleResponse    `json:"rules"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rule, err := h.service.CreateRule(r.Context(), CreateRuleInput{
		AccountType:        req.AccountType,
		DiscountPercentage: req.DiscountPercentage,
		MinimumOrderAmount: req.MinimumOrderAmount,
		CategoryID:         req.CategoryID,
		BrandID:            req.BrandID,
		SupplierID:         req.SupplierID,
		WarehouseID:        req.WarehouseID,
		Actor:              r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req updateRuleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rule, err := h.service.UpdateRule(r.Context(), id, UpdateRuleInput{
		DiscountPercentage: req.DiscountPercentage,
		MinimumOrderAmount: req.MinimumOrderAmount,
		IsActive:           req.IsActive,
		Actor:              r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	if err := h.service.DeactivateRule(r.Context(), id, r.Header.Get(ActorHeader)); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	rule, err := h.service.GetRule(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	filter := RuleFilter{
		AccountType: r.URL.Query().Get("account_type"),
		ActiveOnly:  r.URL.Query().Get("active") == "true",
		Page:        page,
		PerPage:     perPage,
	}
	rules, pagination, err := h.service.ListRules(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	resp := listRulesResponse{Rules: make([]ruleResponse, 0, len(rules)), Pagination: pagination}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, toRuleResponse(rule))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func toRuleResponse(rule Rule) ruleResponse {
	return ruleResponse{Rule: rule, Source: rule.Source()}
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrGlobalRuleExists):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrMultipleScopes), errors.Is(err, pricing.ErrInvalidDiscountRule):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("discount rule request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
