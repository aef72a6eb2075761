package quote

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/gearhaus/gearhaus/internal/platform/httpx"
	"github.com/gearhaus/gearhaus/internal/pricing"
	"github.com/gearhaus/gearhaus/internal/shared"
)

// Handler serves the quote endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	rateLimit int
}

// NewHandler builds Handler instance. rateLimit is the per-IP request budget
// per minute on top of the global limiter.
func NewHandler(logger *slog.Logger, service *Service, rateLimit int) *Handler {
	if rateLimit <= 0 {
		rateLimit = 120
	}
	return &Handler{logger: logger, service: service, validate: validator.New(), rateLimit: rateLimit}
}

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(h.rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/", h.createQuote)
}

type quoteLineRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	VariantID *int64 `json:"variant_id" validate:"omitempty,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type quoteRequest struct {
	Lines        []quoteLineRequest `json:"lines" validate:"required,min=1,dive"`
	CouponCode   string             `json:"coupon_code"`
	GiftCardCode string             `json:"gift_card_code"`
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := QuoteInput{
		CouponCode:   req.CouponCode,
		GiftCardCode: req.GiftCardCode,
		AccountType:  pricing.NormalizeAccountType(shared.AccountTypeFromContext(r.Context())),
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}
	quote, err := h.service.Price(r.Context(), input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	var mismatch *pricing.UnitMismatchError
	switch {
	case errors.Is(err, ErrEmptyQuote), errors.Is(err, ErrTooManyLines), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quote", err.Error())
	case errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrCouponNotFound),
		errors.Is(err, ErrCouponNotApplicable),
		errors.Is(err, ErrGiftCardNotFound),
		errors.Is(err, ErrGiftCardNotRedeemable),
		errors.Is(err, ErrGiftCardMinPurchase):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Quote Rejected", err.Error())
	case errors.As(err, &mismatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unit Mismatch", err.Error())
	default:
		h.logger.Error("quote request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
