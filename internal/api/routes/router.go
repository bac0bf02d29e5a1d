package routes

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/CrazyWorldPL/IVshop/internal/api/handlers"
	"github.com/CrazyWorldPL/IVshop/internal/auth"
	"github.com/CrazyWorldPL/IVshop/internal/metrics"
	"github.com/CrazyWorldPL/IVshop/internal/service"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Registry    *service.RegistryService
	Catalog     *service.CatalogService
	Storefront  *service.StorefrontService
	Fulfillment *service.FulfillmentService
	Tokens      *auth.TokenIssuer
	Login       handlers.LoginProvider
	// Logs is nil when Docker is disabled.
	Logs handlers.LogSource
}

// Options tune the HTTP surface.
type Options struct {
	RedeemRateLimit int // redemptions per minute per client IP
	CORSOrigins     []string
	OpenAPIPath     string
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Dependencies, opts Options, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	authHandler := handlers.NewAuthHandler(deps.Login, deps.Tokens, logger)
	serverHandler := handlers.NewServerHandler(deps.Registry, deps.Catalog, logger)
	catalogHandler := handlers.NewCatalogHandler(deps.Registry, deps.Catalog, logger)
	consoleHandler := handlers.NewConsoleHandler(deps.Registry, deps.Logs, opts.CORSOrigins, logger)
	shopHandler := handlers.NewShopHandler(deps.Storefront, deps.Fulfillment, logger)

	protected := func(h http.HandlerFunc) http.Handler {
		return deps.Tokens.Middleware(h)
	}

	// Login
	mux.HandleFunc("GET /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/v1/auth/callback", authHandler.Callback)
	mux.Handle("GET /api/v1/auth/me", protected(authHandler.Me))

	// Server management endpoints
	mux.Handle("GET /api/v1/servers", protected(serverHandler.ListServers))
	mux.Handle("POST /api/v1/servers", protected(serverHandler.RegisterServer))
	mux.Handle("GET /api/v1/servers/{id}/panel", protected(serverHandler.Panel))
	mux.Handle("PUT /api/v1/servers/{id}/settings", protected(serverHandler.UpdateSettings))
	mux.Handle("PUT /api/v1/servers/{id}/website", protected(serverHandler.CustomizeWebsite))
	mux.Handle("POST /api/v1/servers/{id}/rcon/test", protected(serverHandler.TestRCON))

	// WebSocket endpoints
	mux.Handle("GET /api/v1/servers/{id}/console", protected(consoleHandler.Console))

	// Catalog
	mux.Handle("POST /api/v1/servers/{id}/products", protected(catalogHandler.AddProduct))
	mux.Handle("PUT /api/v1/servers/{id}/products/{productId}", protected(catalogHandler.EditProduct))
	mux.Handle("DELETE /api/v1/servers/{id}/products/{productId}", protected(catalogHandler.DeleteProduct))
	mux.Handle("POST /api/v1/servers/{id}/operators", protected(catalogHandler.AddOperator))
	mux.Handle("DELETE /api/v1/servers/{id}/operators/{operatorId}", protected(catalogHandler.DeleteOperator))
	mux.Handle("GET /api/v1/servers/{id}/vouchers", protected(catalogHandler.ListVouchers))
	mux.Handle("POST /api/v1/servers/{id}/vouchers", protected(catalogHandler.GenerateVoucher))
	mux.Handle("POST /api/v1/servers/{id}/links", protected(catalogHandler.AddLink))
	mux.Handle("DELETE /api/v1/servers/{id}/links/{linkId}", protected(catalogHandler.DeleteLink))

	// Public storefront
	mux.HandleFunc("GET /api/v1/shop/{id}", shopHandler.Shop)
	mux.HandleFunc("GET /api/v1/shop/domain/{domain}", shopHandler.ResolveDomain)
	mux.Handle("POST /api/v1/vouchers/redeem", redeemLimiter(opts.RedeemRateLimit)(http.HandlerFunc(shopHandler.Redeem)))

	// API Documentation endpoints
	mux.HandleFunc("GET /api/openapi.yaml", handlers.OpenAPISpec(opts.OpenAPIPath))
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	// Apply middleware
	return loggingMiddleware(logger, corsMiddleware(opts.CORSOrigins).Handler(mux))
}

// redeemLimiter limits voucher attempts per client IP, answering 429 in the
// API's JSON error format.
func redeemLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRedemption(metrics.ResultRateLimited)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"message": "Zbyt wiele prób. Spróbuj ponownie za chwilę.",
			})
		}),
	)
}

func corsMiddleware(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
}

// healthCheckHandler returns the health status of the API
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// loggingMiddleware logs HTTP requests with structured logging and records
// request metrics.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, wrapped.statusCode, duration)

		logger.InfoContext(r.Context(),
			"HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker interface for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}
