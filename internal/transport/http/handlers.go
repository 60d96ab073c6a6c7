// @title OAuthForge
// @version 1.0.0
// @description Embeddable OAuth 2.0 authorization server core (RFC 6749, RFC 6750)

// @license.name Apache-2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oauthforge/oauth2"
	"github.com/oauthforge/oauth2/internal/observability/logger"
	"github.com/oauthforge/oauth2/internal/observability/metrics"
	"github.com/oauthforge/oauth2/internal/observability/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Handler holds the HTTP-facing dependencies: the library's server façade,
// the audit logger, and the tracer/meter the demo host wraps each of the
// three pipelines in (oauth2.token / oauth2.authorize / oauth2.authenticate
// spans, plus grant-issuance and error-taxonomy counters).
type Handler struct {
	server      *oauth2.Server
	auditLogger *logger.AuditLogger
	tracer      *tracing.Tracer

	tokensIssued otelmetric.Int64Counter
	tokenErrors  otelmetric.Int64Counter
}

// NewHandler constructs a Handler around server, instrumenting it with
// tracer and meter.
func NewHandler(server *oauth2.Server, auditLogger *logger.AuditLogger, tracer *tracing.Tracer, meter *metrics.Meter) (*Handler, error) {
	tokensIssued, err := meter.CreateCounter("oauth2.tokens_issued", "number of access tokens issued, by grant_type")
	if err != nil {
		return nil, err
	}
	tokenErrors, err := meter.CreateCounter("oauth2.token_errors", "number of token pipeline failures, by error taxonomy code")
	if err != nil {
		return nil, err
	}
	return &Handler{
		server:       server,
		auditLogger:  auditLogger,
		tracer:       tracer,
		tokensIssued: tokensIssued,
		tokenErrors:  tokenErrors,
	}, nil
}

// NewRouter wires the demo host's routes: the two public OAuth2 endpoints,
// a protected resource example exercising AuthenticateMiddleware, and a
// health check.
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.HealthCheck)

	// RFC 6749 Section 4.1.1
	r.With(h.AuthenticateMiddleware("")).Get("/authorize", h.Authorize)

	// RFC 6749 Section 4.1.3 / Section 4
	r.Post("/token", h.Token)

	// Example resource protected by the RFC 6750 bearer-token pipeline.
	r.With(h.AuthenticateMiddleware("")).Get("/resource", h.Resource)

	return r
}

// HealthCheck reports liveness.
//
// @Summary Health Check
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "oauthforge",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
