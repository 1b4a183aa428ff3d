package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the loyalty HTTP routes and middleware stack.
func NewRouter(handler *Handler, cronSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/hooks/v1", func(r chi.Router) {
		r.Post("/orders/completed", handler.orderCompleted)
		r.Post("/referrals/converted", handler.referralConverted)
		r.Post("/reviews/approved", handler.reviewApproved)
		r.Post("/payments/stripe", handler.paymentWebhook)
	})

	r.Route("/jobs/v1", func(r chi.Router) {
		r.Use(cronAuthMiddleware(cronSecret))
		r.Post("/weekly-analysis", handler.weeklyAnalysis)
		r.Post("/daily-reports", handler.dailyReports)
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/kpis/refresh", handler.refreshKPIs)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Get("/wallets/{user_id}", handler.getWallet)
		r.Get("/ledger/{user_id}", handler.listLedger)
	})

	return r
}
