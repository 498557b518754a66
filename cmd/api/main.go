package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"invizible.art/internal/auth"
	"invizible.art/internal/blob"
	"invizible.art/internal/catalog"
	"invizible.art/internal/config"
	"invizible.art/internal/contact"
	"invizible.art/internal/events"
	"invizible.art/internal/httpapi"
	"invizible.art/internal/migrate"
	"invizible.art/internal/obs"
	"invizible.art/internal/payment"
	"invizible.art/internal/store/pg"
	"invizible.art/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal("load config", zap.Error(err))
	}
	log := obs.InitLogger(cfg.Env, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	obs.Init()
	obs.SetBuildInfo("storefront-api", version, commit)

	ctx := context.Background()
	shutdownTracing, err := obs.InitTracing(ctx, "storefront-api", cfg.OTLP.Endpoint)
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}

	db, err := pg.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	if cfg.Database.MigrateOnStart {
		if err := runMigrations(ctx, db); err != nil {
			log.Fatal("migrate on start", zap.Error(err))
		}
	}

	api, bus, err := buildAPI(ctx, cfg, db)
	if err != nil {
		log.Fatal("build api", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting storefront-api", zap.String("version", version), zap.String("addr", srv.Addr))

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	bus.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", zap.Error(err))
	}
	_ = db.Close()
	log.Info("stopped")
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	mgr, err := migrate.NewManager(db)
	if err != nil {
		return err
	}
	return mgr.Up(ctx)
}

func buildAPI(ctx context.Context, cfg *config.Config, db *sql.DB) (*httpapi.API, *events.NATS, error) {
	log := obs.Logger()

	codec, err := auth.NewCodecFromPEM(auth.PEMKeys{
		SignPrivate: cfg.Token.SignPrivateKey,
		SignPublic:  cfg.Token.SignPublicKey,
		SignKeyID:   cfg.Token.SignKeyID,
		EncPrivate:  cfg.Token.EncPrivateKey,
		EncPublic:   cfg.Token.EncPublicKey,
		EncKeyID:    cfg.Token.EncKeyID,
	}, auth.WithIssuer(cfg.Token.Issuer))
	if err != nil {
		return nil, nil, err
	}
	authSvc, err := auth.NewService(auth.NewPGStore(db), codec, auth.WithTokenExpiration(cfg.Token.Expiration))
	if err != nil {
		return nil, nil, err
	}

	var payments payment.Provider
	if cfg.Stripe.SecretKey != "" {
		if payments, err = payment.NewStripe(cfg.Stripe.SecretKey); err != nil {
			return nil, nil, err
		}
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, using in-memory payment provider")
		payments = payment.NewMemory()
	}

	var blobs blob.Storage
	if cfg.S3.Endpoint != "" {
		if blobs, err = blob.NewS3(ctx, blob.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			PublicBaseURL:  cfg.S3.PublicBaseURL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			UploadTTL:      cfg.S3.UploadURLTTL,
		}); err != nil {
			return nil, nil, err
		}
	} else {
		log.Warn("S3_ENDPOINT not set, using in-memory blob storage")
		blobs = blob.NewMemory("http://localhost:9000/dev")
	}

	hub := stream.New()
	publisher := events.Fanout{hub}
	var bus *events.NATS
	if cfg.NATS.URL != "" {
		if bus, err = events.Connect(cfg.NATS.URL); err != nil {
			return nil, nil, err
		}
		publisher = append(publisher, bus)
	}

	catalogSvc, err := catalog.NewService(catalog.NewPGStore(db), payments, blobs,
		catalog.WithCurrency(cfg.Stripe.Currency),
		catalog.WithPublisher(publisher),
		catalog.WithCheckout(catalog.CheckoutConfig{
			SuccessURL:       cfg.Stripe.SuccessURL,
			CancelURL:        cfg.Stripe.CancelURL,
			AllowedCountries: cfg.Stripe.AllowedCountries,
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	api, err := httpapi.New(httpapi.Services{
		Auth:    authSvc,
		Catalog: catalogSvc,
		Contact: contact.NewService(contact.NewPGStore(db)),
	},
		httpapi.WithReadyProbe(httpapi.ReadyProbe{DB: db}),
		httpapi.WithStream(hub),
		httpapi.WithVersion(version),
		httpapi.WithRateLimit(cfg.HTTP.RateBurst, cfg.HTTP.RatePerSecond),
		httpapi.WithTrustedProxies(cfg.HTTP.TrustedProxies),
		httpapi.WithAllowedOrigins(cfg.HTTP.AllowedOrigins),
	)
	if err != nil {
		return nil, nil, err
	}
	return api, bus, nil
}
