package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds the runtime configuration for the bulk upload pipeline.
// It is constructed once per use and passed explicitly to the batch
// processor and the hospital client; nothing caches it globally.
type Settings struct {
	// HospitalAPIBaseURL is the root of the external Hospital Directory API.
	HospitalAPIBaseURL string

	// MaxCSVRows limits how many hospitals a single upload may contain.
	MaxCSVRows int

	// RequestTimeout applies to create/activate/delete calls.
	RequestTimeout time.Duration
	// WarmupTimeout applies to the best-effort warmup probe only.
	WarmupTimeout time.Duration

	// MaxRetries is the number of extra attempts after the first failed
	// create call. RetryDelay is the wait between attempts.
	MaxRetries int
	RetryDelay time.Duration

	// SkipTLSVerify disables certificate verification for the external API.
	// Only meant for deployments where the directory service uses a
	// self-signed certificate; off unless explicitly enabled.
	SkipTLSVerify bool

	// LedgerWriteAttempts and LedgerRetryDelay bound the retry loop around
	// batch/result writes when the database reports transient errors.
	LedgerWriteAttempts int
	LedgerRetryDelay    time.Duration

	// NotifyTo, when set, receives a summary email for every finished batch.
	NotifyTo string
}

// LoadSettings reads configuration from environment variables with defaults
// suitable for local development.
func LoadSettings() Settings {
	return Settings{
		HospitalAPIBaseURL:  getEnv("HOSPITAL_API_BASE_URL", "https://hospital-directory.onrender.com"),
		MaxCSVRows:          getEnvInt("MAX_CSV_ROWS", 20),
		RequestTimeout:      getEnvDuration("HOSPITAL_API_TIMEOUT", 90*time.Second),
		WarmupTimeout:       getEnvDuration("HOSPITAL_API_WARMUP_TIMEOUT", 30*time.Second),
		MaxRetries:          getEnvInt("HOSPITAL_API_MAX_RETRIES", 2),
		RetryDelay:          getEnvDuration("HOSPITAL_API_RETRY_DELAY", 5*time.Second),
		SkipTLSVerify:       os.Getenv("HOSPITAL_API_SKIP_TLS_VERIFY") == "1",
		LedgerWriteAttempts: getEnvInt("LEDGER_WRITE_ATTEMPTS", 3),
		LedgerRetryDelay:    getEnvDuration("LEDGER_RETRY_DELAY", 200*time.Millisecond),
		NotifyTo:            os.Getenv("BATCH_NOTIFY_TO"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
