package app

// router.go собирает HTTP-маршруты: публичные хендлеры за bearer-
// авторизацией, админские — дополнительно за проверкой админ-пароля.

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/config"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/giftbox"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/ledger"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/payment"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/promotion"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/settlement"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/features/wallet"
	"github.com/likenovel-admin/likenovel-service-api-sub002/internal/httpapi"
)

// routerHandlers — все обработчики, нужные маршрутизатору.
type routerHandlers struct {
	wallet     *wallet.Handler
	giftbox    *giftbox.Handler
	promotion  *promotion.Handler
	payment    *payment.Handler
	ledger     *ledger.Handler
	settlement *settlement.Handler
}

// newRouter собирает chi-маршрутизатор со всем middleware.
func newRouter(cfg *config.Config, introspector httpapi.Introspector, h routerHandlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(httpapi.RequestID)
	r.Use(httpapi.RequestLogger)
	r.Use(httpapi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-Type", "X-Admin-Password"},
		AllowCredentials: true,
	}))

	limiter := httpapi.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Пользовательские маршруты
	r.Group(func(r chi.Router) {
		r.Use(httpapi.Auth(introspector))
		r.Use(limiter.Middleware)

		r.Route("/user-productbook", func(r chi.Router) {
			r.Get("/available-tickets", h.wallet.HandleAvailableTickets)
			r.Post("/{id}/use", h.wallet.HandleConsume)
		})

		r.Route("/episodes", func(r chi.Router) {
			r.Post("/{episode_id}/read", h.wallet.HandleReadEpisode)
			r.Post("/{episode_id}/purchase-with-cash", h.payment.HandlePurchaseEpisode)
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/{product_id}/purchase-all-with-cash", h.payment.HandlePurchaseAll)
			r.Post("/{product_id}/sponsor", h.ledger.HandleSponsor)
			r.Get("/{product_id}/direct-promotions", h.promotion.HandleListDirect)
			r.Get("/{product_id}/settlements/{month}", h.settlement.HandleGetMonthly)
			r.Get("/{product_id}/income-records", h.settlement.HandleListIncome)
			r.Get("/{product_id}/sponsorship-settlement", h.settlement.HandleGetSponsorship)
		})

		r.Post("/orders/cash/complete", h.payment.HandleCompleteCashOrder)

		r.Route("/user-giftbook", func(r chi.Router) {
			r.Get("/", h.giftbox.HandleListPending)
			r.Get("/log", h.giftbox.HandleHistory)
			r.Post("/{id}/receive", h.giftbox.HandleReceive)
		})

		r.Route("/user", func(r chi.Router) {
			r.Post("/direct-promotion/{promotion_id}/issue", h.promotion.HandleClaimDirect)
			r.Get("/cash/balance", h.ledger.HandleBalance)
			r.Get("/cash/history", h.ledger.HandleHistory)
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Post("/apply", h.promotion.HandleApply)
			r.Post("/{id}/cancel", h.promotion.HandleCancel)
		})

		r.Get("/settlements", h.settlement.HandleListMonthly)
	})

	// Админские маршруты
	r.Group(func(r chi.Router) {
		r.Use(httpapi.Auth(introspector))
		r.Use(httpapi.AdminOnly(cfg.AdminPasswordHash))

		r.Route("/admins", func(r chi.Router) {
			r.Post("/applied-promotion/{id}/{action}", h.promotion.HandleTransition)
			r.Post("/giftbook/grant", h.giftbox.HandleAdminGrant)
			r.Post("/refunds/episode", h.payment.HandleRefundEpisode)
			r.Post("/refunds/topup", h.payment.HandleRefundTopUp)
			r.Post("/settlements/build", h.settlement.HandleBuildMonth)
			r.Put("/settlements/{product_id}/{month}/tax", h.settlement.HandleSetTax)
			r.Post("/income-records", h.settlement.HandleAddIncome)
			r.Post("/sponsorship-settlement/{product_id}/{action}", h.settlement.HandleSponsorshipTransition)
		})
	})

	return r
}
