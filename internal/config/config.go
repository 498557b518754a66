// Package config loads runtime settings from the environment and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	Env      string
	LogLevel string
	HTTP     HTTPConfig
	Database DatabaseConfig
	Token    TokenConfig
	Stripe   StripeConfig
	S3       S3Config
	NATS     NATSConfig
	OTLP     OTLPConfig
}

type HTTPConfig struct {
	Addr            string
	RateBurst       int
	RatePerSecond   int
	ShutdownTimeout time.Duration
	// TrustedProxies are CIDR ranges or addresses allowed to set X-Forwarded-For.
	TrustedProxies []string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN            string
	MigrateOnStart bool
}

// TokenConfig holds the two independent RSA key pairs used by the token codec.
type TokenConfig struct {
	SignPrivateKey string
	SignPublicKey  string
	SignKeyID      string
	EncPrivateKey  string
	EncPublicKey   string
	EncKeyID       string
	Issuer         string
	// Expiration is a relative-time expression such as "7 days" or "12h".
	Expiration string
}

type StripeConfig struct {
	SecretKey        string
	Currency         string
	SuccessURL       string
	CancelURL        string
	AllowedCountries []string
}

type S3Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	PublicBaseURL  string
	ForcePathStyle bool
	UploadURLTTL   time.Duration
}

type NATSConfig struct {
	URL string
}

type OTLPConfig struct {
	Endpoint string
}

// Load reads configuration. Environment variables take precedence over the
// file named by STOREFRONT_CONFIG_FILE.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if p := os.Getenv("STOREFRONT_CONFIG_FILE"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
	}

	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Addr:            v.GetString("HTTP_ADDR"),
			RateBurst:       v.GetInt("HTTP_RATE_BURST"),
			RatePerSecond:   v.GetInt("HTTP_RATE_PER_SECOND"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
			TrustedProxies:  splitCSV(v.GetString("HTTP_TRUSTED_PROXIES")),
			AllowedOrigins:  splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			DSN:            v.GetString("DATABASE_URL"),
			MigrateOnStart: v.GetBool("DATABASE_MIGRATE_ON_START"),
		},
		Token: TokenConfig{
			SignPrivateKey: v.GetString("SIGN_PRIVATE_KEY"),
			SignPublicKey:  v.GetString("SIGN_PUBLIC_KEY"),
			SignKeyID:      v.GetString("SIGN_KID"),
			EncPrivateKey:  v.GetString("ENC_PRIVATE_KEY"),
			EncPublicKey:   v.GetString("ENC_PUBLIC_KEY"),
			EncKeyID:       v.GetString("ENC_KID"),
			Issuer:         v.GetString("TOKEN_ISSUER"),
			Expiration:     v.GetString("TOKEN_EXPIRATION_TIME"),
		},
		Stripe: StripeConfig{
			SecretKey:        v.GetString("STRIPE_SECRET_KEY"),
			Currency:         strings.ToLower(v.GetString("STRIPE_CURRENCY")),
			SuccessURL:       v.GetString("STRIPE_CHECKOUT_SUCCESS_URL"),
			CancelURL:        v.GetString("STRIPE_CHECKOUT_CANCEL_URL"),
			AllowedCountries: splitList(v.GetString("STRIPE_SHIPPING_COUNTRIES")),
		},
		S3: S3Config{
			Endpoint:       v.GetString("S3_ENDPOINT"),
			Region:         v.GetString("S3_REGION"),
			Bucket:         v.GetString("S3_BUCKET"),
			AccessKey:      v.GetString("S3_ACCESS_KEY"),
			SecretKey:      v.GetString("S3_SECRET_KEY"),
			PublicBaseURL:  v.GetString("S3_PUBLIC_BASE_URL"),
			ForcePathStyle: v.GetBool("S3_FORCE_PATH_STYLE"),
			UploadURLTTL:   v.GetDuration("S3_UPLOAD_URL_TTL"),
		},
		NATS: NATSConfig{URL: v.GetString("NATS_URL")},
		OTLP: OTLPConfig{Endpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "prod")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_RATE_BURST", 20)
	v.SetDefault("HTTP_RATE_PER_SECOND", 10)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TOKEN_ISSUER", "invizible")
	v.SetDefault("TOKEN_EXPIRATION_TIME", "7 days")
	v.SetDefault("STRIPE_CURRENCY", "cad")
	v.SetDefault("STRIPE_SHIPPING_COUNTRIES", "US,CA,GB,AU,CN,JP,KR,TW,HK,SG")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_FORCE_PATH_STYLE", true)
	v.SetDefault("S3_UPLOAD_URL_TTL", 15*time.Minute)
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require("DATABASE_URL", c.Database.DSN)
	require("SIGN_PRIVATE_KEY", c.Token.SignPrivateKey)
	require("SIGN_PUBLIC_KEY", c.Token.SignPublicKey)
	require("ENC_PRIVATE_KEY", c.Token.EncPrivateKey)
	require("ENC_PUBLIC_KEY", c.Token.EncPublicKey)
	require("STRIPE_CURRENCY", c.Stripe.Currency)
	if c.Env != "dev" {
		require("STRIPE_SECRET_KEY", c.Stripe.SecretKey)
		require("STRIPE_CHECKOUT_SUCCESS_URL", c.Stripe.SuccessURL)
		require("STRIPE_CHECKOUT_CANCEL_URL", c.Stripe.CancelURL)
		require("S3_ENDPOINT", c.S3.Endpoint)
		require("S3_BUCKET", c.S3.Bucket)
		require("S3_ACCESS_KEY", c.S3.AccessKey)
		require("S3_SECRET_KEY", c.S3.SecretKey)
	}
	return errors.Join(errs...)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitList(raw string) []string {
	out := splitCSV(raw)
	for i := range out {
		out[i] = strings.ToUpper(out[i])
	}
	return out
}
