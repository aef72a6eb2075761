package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gearhaus/gearhaus/internal/catalog"
	"github.com/gearhaus/gearhaus/internal/discounts"
	"github.com/gearhaus/gearhaus/internal/giftcards"
	"github.com/gearhaus/gearhaus/internal/observability"
	"github.com/gearhaus/gearhaus/internal/promotions"
	"github.com/gearhaus/gearhaus/internal/quote"
	"github.com/gearhaus/gearhaus/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	DiscountHandler  *discounts.Handler
	PromotionHandler *promotions.Handler
	GiftCardHandler  *giftcards.Handler
	QuoteHandler     *quote.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Gearhaus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.DiscountHandler != nil {
		r.Route("/discount-rules", params.DiscountHandler.MountRoutes)
	}
	if params.PromotionHandler != nil {
		r.Route("/promotions", params.PromotionHandler.MountRoutes)
	}
	if params.GiftCardHandler != nil {
		r.Route("/gift-cards", params.GiftCardHandler.MountRoutes)
	}
	if params.QuoteHandler != nil {
		r.Route("/quote", params.QuoteHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
