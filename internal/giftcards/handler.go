package giftcards

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gearhaus/gearhaus/internal/platform/httpx"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// ActorHeader identifies the administrator performing configuration changes.
const ActorHeader = "X-Admin-Actor"

// IdempotencyKeyHeader makes redemption retries safe.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler manages gift card endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers gift card routes. The check endpoint takes the code
// in the body so card codes stay out of access logs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/check", h.check)
	r.Get("/{code}", h.show)
	r.Delete("/{code}", h.deactivate)
	r.Post("/{code}/redeem", h.redeem)
}

type createCardRequest struct {
	Code          string     `json:"code"`
	InitialAmount float64    `json:"initial_amount" validate:"required,gt=0"`
	ExpiresAt     *time.Time `json:"expires_at"`
	MinPurchase   *float64   `json:"min_purchase" validate:"omitempty,gte=0"`
}

type checkRequest struct {
	Code string `json:"code" validate:"required"`
}

type redeemRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type listCardsResponse struct {
	Cards      []Card            `json:"cards"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	card, err := h.service.CreateCard(r.Context(), CreateCardInput{
		Code:          req.Code,
		InitialAmount: req.InitialAmount,
		ExpiresAt:     req.ExpiresAt,
		MinPurchase:   req.MinPurchase,
		Actor:         r.Header.Get(ActorHeader),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, card)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	status, err := h.service.Check(r.Context(), req.Code)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	redemption, err := h.service.Redeem(r.Context(), chi.URLParam(r, "code"), req.Amount,
		r.Header.Get(IdempotencyKeyHeader), r.Header.Get(ActorHeader))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, redemption)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	card, err := h.service.GetCard(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "code"), r.Header.Get(ActorHeader)); err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageFromRequest(r)
	cards, pagination, err := h.service.ListCards(r.Context(), CardFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
		Page:       page,
		PerPage:    perPage,
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if cards == nil {
		cards = []Card{}
	}
	httpx.JSON(w, http.StatusOK, listCardsResponse{Cards: cards, Pagination: pagination})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCodeTaken), errors.Is(err, ErrDuplicateRedemption):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotRedeemable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Not Redeemable", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("gift card request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
