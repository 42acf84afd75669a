package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting of the API and the job runner.
type Config struct {
	Env            string
	Port           string
	LogLevel       string
	BaseURL        string
	FrontendOrigin string
	UploadDir      string

	PrimaryDSN  string
	ReadOnlyDSN string

	JWTSecret string
	JWTTTL    time.Duration

	AMQPURL string

	GeminiAPIKey string
	GeminiModel  string

	TikTok    OAuthApp
	Instagram OAuthApp

	JobInterval         time.Duration
	RefreshConcurrency  int
	RefreshRatePerSec   float64
	VerificationCodeTTL time.Duration
}

// OAuthApp is the client registration for one social platform.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether the platform has credentials.
func (a OAuthApp) Configured() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

// Load reads the .env file (if any) and then the process environment.
// The returned bool is false when no .env file was found.
func Load(files ...string) (*Config, bool) {
	envLoaded := godotenv.Load(files...) == nil

	cfg := &Config{
		Env:            getString("APP_ENV", "development"),
		Port:           getString("PORT", "8080"),
		LogLevel:       getString("LOG_LEVEL", "info"),
		BaseURL:        strings.TrimRight(getString("BASE_URL", "http://localhost:8080"), "/"),
		FrontendOrigin: getString("FRONTEND_ORIGIN", "http://localhost:3000"),
		UploadDir:      getString("UPLOAD_DIR", "./uploads"),

		PrimaryDSN:  getString("DB_DSN_PRIMARY", "root:root@tcp(127.0.0.1:3306)/collabhub?parseTime=true"),
		ReadOnlyDSN: os.Getenv("DB_DSN_READONLY"),

		JWTSecret: getString("JWT_SECRET", "change-me-in-production"),
		JWTTTL:    time.Duration(getInt("JWT_TTL_HOURS", 72)) * time.Hour,

		AMQPURL: os.Getenv("AMQP_URL"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getString("GEMINI_MODEL", "gemini-1.5-flash"),

		TikTok: OAuthApp{
			ClientID:     os.Getenv("TIKTOK_CLIENT_KEY"),
			ClientSecret: os.Getenv("TIKTOK_CLIENT_SECRET"),
			RedirectURL:  getString("TIKTOK_REDIRECT_URL", "http://localhost:8080/v1/oauth/tiktok/callback"),
		},
		Instagram: OAuthApp{
			ClientID:     os.Getenv("INSTAGRAM_CLIENT_ID"),
			ClientSecret: os.Getenv("INSTAGRAM_CLIENT_SECRET"),
			RedirectURL:  getString("INSTAGRAM_REDIRECT_URL", "http://localhost:8080/v1/oauth/instagram/callback"),
		},

		JobInterval:         time.Duration(getInt("JOB_INTERVAL_MINUTES", 60)) * time.Minute,
		RefreshConcurrency:  getInt("REFRESH_CONCURRENCY", 4),
		RefreshRatePerSec:   getFloat("REFRESH_RATE_PER_SECOND", 2),
		VerificationCodeTTL: 15 * time.Minute,
	}

	return cfg, envLoaded
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
