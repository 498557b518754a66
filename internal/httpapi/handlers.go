// Package httpapi exposes the storefront core over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"invizible.art/internal/auth"
	"invizible.art/internal/catalog"
	"invizible.art/internal/contact"
	"invizible.art/internal/obs"
	"invizible.art/internal/store/pg"
	"invizible.art/internal/stream"
)

const serviceName = "invizible-storefront"

// ReadyProbe reports whether the database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return pg.Ping(ctx, rp.DB)
}

// Services are the core components served by the API.
type Services struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Contact *contact.Service
}

// API is the HTTP layer.
type API struct {
	auth       *auth.Service
	catalog    *catalog.Service
	contact    *contact.Service
	stream     *stream.Hub
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
	proxies    []string
	trusted    []netip.Prefix
	origins    []string
	maxBody    int64
	keepAlive  time.Duration
	log        *zap.Logger
}

// Option configures the API.
type Option func(*API)

func WithReadyProbe(rp ReadyProbe) Option {
	return func(a *API) { a.readyProbe = rp }
}

// WithStream enables the live catalog event feed.
func WithStream(h *stream.Hub) Option {
	return func(a *API) { a.stream = h }
}

func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// WithRateLimit sets the per-client token bucket for /v1 routes.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst, a.ratePerSec = burst, perSecond
		}
	}
}

// WithTrustedProxies lists the CIDR ranges or addresses whose
// X-Forwarded-For header is believed when keying the rate limiter.
func WithTrustedProxies(proxies []string) Option {
	return func(a *API) { a.proxies = proxies }
}

// WithAllowedOrigins sets the browser origins granted CORS access.
func WithAllowedOrigins(origins []string) Option {
	return func(a *API) { a.origins = origins }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

func New(svc Services, opts ...Option) (*API, error) {
	if svc.Auth == nil || svc.Catalog == nil || svc.Contact == nil {
		return nil, errors.New("httpapi: auth, catalog and contact services are required")
	}
	a := &API{
		auth:       svc.Auth,
		catalog:    svc.Catalog,
		contact:    svc.Contact,
		version:    "dev",
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    1 << 20,
		keepAlive:  25 * time.Second,
		log:        obs.Logger().Named("http"),
	}
	for _, opt := range opts {
		opt(a)
	}
	trusted, err := parseProxies(a.proxies)
	if err != nil {
		return nil, err
	}
	a.trusted = trusted
	return a, nil
}

// Handler builds the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.Instrument)
	r.Use(a.accessLog)
	r.Use(SecurityHeaders)
	r.Use(CORS(a.origins))

	r.Get("/healthz", a.Healthz)
	r.Get("/readyz", a.Ready)
	r.Handle("/metrics", obs.Handler())

	limiter := newRateLimiter(a.rateBurst, a.ratePerSec, a.trusted)
	r.Route("/v1", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(a.withRequestContext)

		r.Get("/info", a.Info)
		r.Post("/auth/login", a.handleLogin)
		r.Get("/products", a.handleListProducts)
		r.Get("/products/{id}", a.handleGetProduct)
		r.Post("/checkout/sessions", a.handleCreateCheckout)
		r.Get("/works", a.handleListWorks)
		r.Post("/contact", a.handleContact)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/auth/logout", a.handleLogout)
			r.Get("/auth/me", a.handleMe)
			r.Post("/products", a.handleCreateProduct)
			r.Patch("/products/{id}", a.handleUpdateProduct)
			r.Delete("/products/{id}", a.handleDeleteProduct)
			r.Post("/products/images", a.handleCreateProductImage)
			r.Delete("/products/images/{id}", a.handleDeleteProductImage)
			r.Post("/works", a.handleCreateWork)
			r.Post("/works/images", a.handleCreateWorkImage)
			r.Get("/catalog/events", a.handleCatalogEvents)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return obs.Trace(serviceName)(r)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		a.log.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
