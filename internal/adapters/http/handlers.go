package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/leanlab/loyalty-engine/internal/application"
	"github.com/leanlab/loyalty-engine/internal/contracts"
	"github.com/leanlab/loyalty-engine/internal/ports"
)

// maxWebhookBody bounds raw payment payload reads; Stripe events are small.
const maxWebhookBody = 1 << 20

// Handler is the HTTP adapter entrypoint for loyalty use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	tokens  ports.TokenVerifier
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service, tokens ports.TokenVerifier) *Handler {
	return &Handler{service: service, tokens: tokens}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		if h.tokens == nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "token verification not configured")
			return
		}
		claims, err := h.tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
			return
		}
		ctx := contextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) orderCompleted(w http.ResponseWriter, r *http.Request) {
	var req contracts.OrderCompletedRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "order_completed", err)
		return
	}
	outcome, err := h.service.OrderCompleted(r.Context(), req.OrderID)
	if err != nil {
		writeMappedError(r.Context(), w, "order_completed", err)
		return
	}
	writeSuccess(w, http.StatusOK, creditResponse(outcome))
}

func (h *Handler) referralConverted(w http.ResponseWriter, r *http.Request) {
	var req contracts.ReferralConvertedRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "referral_converted", err)
		return
	}
	outcome, err := h.service.ReferralConverted(r.Context(), req.ReferralID)
	if err != nil {
		writeMappedError(r.Context(), w, "referral_converted", err)
		return
	}
	writeSuccess(w, http.StatusOK, creditResponse(outcome))
}

func (h *Handler) reviewApproved(w http.ResponseWriter, r *http.Request) {
	var req contracts.ReviewApprovedRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "review_approved", err)
		return
	}
	outcome, err := h.service.ReviewApproved(r.Context(), req.ReviewID)
	if err != nil {
		writeMappedError(r.Context(), w, "review_approved", err)
		return
	}
	writeSuccess(w, http.StatusOK, creditResponse(outcome))
}

// paymentWebhook reads the literal raw bytes before anything else: the
// signature covers the body as delivered, not a re-serialized form.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeValidationError(r.Context(), w, "payment_webhook", err)
		return
	}
	outcome, err := h.service.IngestPaymentEvent(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeMappedError(r.Context(), w, "payment_webhook", err)
		return
	}

	resp := contracts.PaymentIngestResponse{
		PaymentID:       outcome.PaymentID,
		StripePaymentID: outcome.StripePaymentID,
		Amount:          outcome.Amount,
		Duplicate:       outcome.Duplicate,
	}
	if outcome.MissingFridgeID {
		resp.Error = "missing fridge id"
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *Handler) weeklyAnalysis(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.RunWeeklyAnalysis(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "weekly_analysis", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.AnalysisResponse{
		Processed: outcome.Processed,
		Skipped:   outcome.Skipped,
	})
}

func (h *Handler) dailyReports(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.RunDailyReports(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "daily_reports", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.DailyReportResponse{
		SalesFridges:  outcome.SalesFridges,
		RestockAlerts: outcome.RestockAlerts,
	})
}

func (h *Handler) refreshKPIs(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshKPIs(r.Context(), actorFromRequest(r)); err != nil {
		writeMappedError(r.Context(), w, "refresh_kpis", err)
		return
	}
	writeMessage(w, http.StatusOK, "kpi views refreshed")
}

func (h *Handler) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	wallet, err := h.service.GetWallet(r.Context(), actorFromRequest(r), userID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_wallet", err)
		return
	}
	writeSuccess(w, http.StatusOK, wallet)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	page, err := h.service.ListLedger(r.Context(), actorFromRequest(r), userID, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_ledger", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"entries": page.Entries,
		"pagination": contracts.Pagination{
			Limit:  page.Limit,
			Offset: page.Offset,
			Total:  page.Total,
		},
	})
}

func creditResponse(outcome application.CreditOutcome) contracts.CreditResponse {
	return contracts.CreditResponse{
		Credited:         outcome.Credited,
		AlreadyProcessed: outcome.AlreadyProcessed,
		CapReached:       outcome.CapReached,
		Amount:           outcome.Amount,
		Rate:             outcome.Rate,
	}
}

func actorFromRequest(r *http.Request) application.Actor {
	actor := application.Actor{RequestID: requestIDFromContext(r.Context())}
	if claims, ok := claimsFromContext(r.Context()); ok {
		actor.SubjectID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}

func contextWithClaims(ctx context.Context, claims ports.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, msg, err)
	writeError(w, status, code, msg)
}

func writeValidationError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	code := "VALIDATION_ERROR"
	msg := err.Error()
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, code, msg, err)
	writeError(w, http.StatusBadRequest, code, msg)
}
