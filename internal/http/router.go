package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the storefront API. The auth middleware is injected so
// tests can put a fixed identity in place of the header-based stub.
func NewRouter(
	cartHandler *CartHandler,
	checkoutHandler *CheckoutHandler,
	authMiddleware func(http.Handler) http.Handler,
	metricsHandler http.Handler,
	requestTimeout time.Duration) chi.Router {

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(authMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", checkoutHandler.Status)
			r.Post("/", checkoutHandler.StartCheckout)
			r.Get("/payment", checkoutHandler.PaymentPage)
			r.Post("/payment", checkoutHandler.SubmitPayment)
		})

		r.Get("/orders/{order_id}", checkoutHandler.GetOrder)
	})

	return r
}
