package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/application"
	appCart "github.com/Zhima-Mochi/minishop-fashion/internal/application/cart"
	appOrder "github.com/Zhima-Mochi/minishop-fashion/internal/application/order"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

type Handler struct {
	orders   *appOrder.Workflow
	carts    *appCart.Service
	auth     *Authenticator
	limiter  *RateLimiter
	metrics  http.Handler
	validate *validator.Validate
	log      observability.Logger

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

type HandlerDeps struct {
	Orders *appOrder.Workflow
	Carts  *appCart.Service
	Auth   *Authenticator
	// PaymentLimiter throttles the payment routes; nil disables throttling.
	PaymentLimiter *RateLimiter
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	Tel     observability.Observability
}

func NewHandler(d HandlerDeps) *Handler {
	tel := d.Tel
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		orders:       d.Orders,
		carts:        d.Carts,
		auth:         d.Auth,
		limiter:      d.PaymentLimiter,
		metrics:      d.Metrics,
		validate:     validator.New(),
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	buyer := h.auth.Require(session.RoleBuyer)
	owner := h.auth.Require(session.RoleOwner)
	anyone := h.auth.Require()
	payment := []func(http.Handler) http.Handler{buyer}
	if h.limiter != nil {
		payment = append(payment, h.limiter.Middleware())
	}

	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.handle(r, http.MethodPost, "/order/placeorder", h.handlePlaceOrder, buyer)
	h.handle(r, http.MethodPost, "/order/payment/create-order", h.handleCreatePayment, payment...)
	h.handle(r, http.MethodPost, "/order/pay/verify", h.handleVerifyPayment, payment...)
	h.handle(r, http.MethodGet, "/order/buyer/{buyer_id}", h.handleListBuyerOrders, buyer)
	h.handle(r, http.MethodGet, "/order/getorders", h.handleListOwnerOrders, owner)
	h.handle(r, http.MethodGet, "/order/{orderId}", h.handleGetOrder, anyone)
	h.handle(r, http.MethodPut, "/order/{orderId}/cancel", h.handleCancelOrder, buyer)
	h.handle(r, http.MethodPut, "/order/{orderId}/status", h.handleUpdateStatus, owner)
	h.handle(r, http.MethodPut, "/order/{orderId}/refund", h.handleMarkRefunded, owner)

	h.handle(r, http.MethodGet, "/cart", h.handleGetCart, buyer)
	h.handle(r, http.MethodPost, "/cart/items", h.handleAddCartLine, buyer)
	h.handle(r, http.MethodPut, "/cart/items", h.handleUpdateCartLine, buyer)
	h.handle(r, http.MethodDelete, "/cart/items", h.handleRemoveCartLine, buyer)

	return r
}

// handle wires one route: Trace → request logger → access log → metrics →
// route middlewares → handler. Route middlewares run last so rejected
// requests are still logged and counted.
func (h *Handler) handle(r chi.Router, method, pattern string, handler http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
	route := method + " " + pattern

	var inner http.Handler = handler
	for i := len(mws) - 1; i >= 0; i-- {
		inner = mws[i](inner)
	}

	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		)(
			h.withAccessLog(
				h.withHTTPMetrics(inner),
			),
		),
	)

	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("minishop.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		template := route
		if idx := strings.Index(template, " "); idx >= 0 {
			template = template[idx+1:]
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

// bind decodes the JSON body into dst and validates it. An empty body is
// accepted when allowEmpty is set.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil && !(allowEmpty && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, errors.New(validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeAppError maps the use case error taxonomy onto status codes. Unknown
// errors are logged and hidden behind a generic 500.
func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, application.ErrPaymentVerification):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, application.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, application.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, application.ErrPaymentGateway):
		writeError(w, http.StatusBadGateway, errors.New("payment provider unavailable"))
	default:
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error", observability.F("error", err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
