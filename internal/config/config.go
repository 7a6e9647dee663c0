package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultARMEndpoint     = "https://management.azure.com"
	defaultJobPollInterval = 30 * time.Second
	defaultARMMaxRetries   = 5
	defaultSessionIdle     = 30 * time.Minute
)

type Config struct {
	HTTPAddr        string
	MetricsAddr     string
	ARMEndpoint     string
	ARMAPIVersion   string
	AccessToken     string
	TenantID        string
	ClientID        string
	ClientSecret    string
	AuthorityURL    string
	JobPollInterval time.Duration
	OperationPoll   time.Duration
	ARMMaxRetries   int
	// SessionIdle closes console sessions that saw no request for this long.
	SessionIdle     time.Duration
}

type LoadOptions struct {
	RequireCredentials bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireCredentials: true})
}

func LoadOptionalCredentials() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireCredentials: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		HTTPAddr:        getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:     strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		ARMEndpoint:     strings.TrimRight(getenvDefault("ARM_ENDPOINT", defaultARMEndpoint), "/"),
		ARMAPIVersion:   strings.TrimSpace(os.Getenv("ARM_API_VERSION")),
		AccessToken:     strings.TrimSpace(os.Getenv("AZURE_ACCESS_TOKEN")),
		TenantID:        strings.TrimSpace(os.Getenv("AZURE_TENANT_ID")),
		ClientID:        strings.TrimSpace(os.Getenv("AZURE_CLIENT_ID")),
		ClientSecret:    os.Getenv("AZURE_CLIENT_SECRET"),
		AuthorityURL:    strings.TrimSpace(os.Getenv("AZURE_AUTHORITY")),
		JobPollInterval: getenvDurationDefault("JOB_POLL_INTERVAL", defaultJobPollInterval),
		OperationPoll:   getenvDurationDefault("ARM_OPERATION_POLL_INTERVAL", 0),
		ARMMaxRetries:   getenvIntDefault("ARM_MAX_RETRIES", defaultARMMaxRetries),
		SessionIdle:     getenvDurationDefault("SESSION_IDLE_TIMEOUT", defaultSessionIdle),
	}

	if opts.RequireCredentials && !cfg.HasCredentials() {
		return cfg, errors.New("AZURE_ACCESS_TOKEN or AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET are required")
	}

	return cfg, nil
}

// HasCredentials reports whether a static token or a full client credential
// set is configured.
func (c Config) HasCredentials() bool {
	if c.AccessToken != "" {
		return true
	}
	return c.UsesClientCredentials()
}

func (c Config) UsesClientCredentials() bool {
	return c.TenantID != "" && c.ClientID != "" && strings.TrimSpace(c.ClientSecret) != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
