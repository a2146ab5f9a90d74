package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"shop-orders/internal/database"
)

type VoucherPolicy string

const (
	// VoucherPolicyReject fails the whole order when any code is ineligible.
	VoucherPolicyReject VoucherPolicy = "reject"
	// VoucherPolicySkip drops ineligible codes and places the order anyway.
	VoucherPolicySkip VoucherPolicy = "skip"
)

func ParseVoucherPolicy(s string) (VoucherPolicy, error) {
	switch p := VoucherPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", VoucherPolicyReject:
		return VoucherPolicyReject, nil
	case VoucherPolicySkip:
		return p, nil
	}
	return "", errors.Errorf("unknown voucher policy %q", s)
}

type Config struct {
	HTTPAddr    string
	CORSOrigins []string
	DB          database.Config

	LogLevel  string
	LogPretty bool

	VoucherPolicy VoucherPolicy

	RedisAddr     string
	StatsCacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JaegerEndpoint string

	GatewayLatency    time.Duration
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function so tests can feed a map.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		HTTPAddr:    r.str("HTTP_ADDR", ":8080"),
		CORSOrigins: r.list("CORS_ALLOW_ORIGINS"),
		DB: database.Config{
			Host:            r.str("BLUEPRINT_DB_HOST", "localhost"),
			Port:            r.str("BLUEPRINT_DB_PORT", "5432"),
			Database:        r.str("BLUEPRINT_DB_DATABASE", "shop"),
			Username:        r.str("BLUEPRINT_DB_USERNAME", "postgres"),
			Password:        r.str("BLUEPRINT_DB_PASSWORD", "postgres"),
			Schema:          r.str("BLUEPRINT_DB_SCHEMA", "public"),
			MaxOpenConns:    r.int("BLUEPRINT_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    r.int("BLUEPRINT_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("BLUEPRINT_DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		LogLevel:          r.str("LOG_LEVEL", "info"),
		LogPretty:         r.bool("LOG_PRETTY", false),
		RedisAddr:         r.str("REDIS_ADDR", ""),
		StatsCacheTTL:     r.duration("STATS_CACHE_TTL", 5*time.Minute),
		KafkaBrokers:      r.list("KAFKA_BROKERS"),
		KafkaTopic:        r.str("KAFKA_TOPIC", "shop.orders"),
		JaegerEndpoint:    r.str("JAEGER_ENDPOINT", ""),
		GatewayLatency:    r.duration("PAYMENT_GATEWAY_LATENCY", 200*time.Millisecond),
		ReconcileInterval: r.duration("RECONCILE_INTERVAL", 30*time.Second),
		ReconcileAfter:    r.duration("RECONCILE_AFTER", time.Minute),
	}

	policy, err := ParseVoucherPolicy(getenv("VOUCHER_POLICY"))
	if err != nil {
		r.fail(err)
	}
	cfg.VoucherPolicy = policy
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	if r.err != nil {
		return nil, r.err
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, errors.New("RECONCILE_INTERVAL must be positive")
	}
	return cfg, nil
}

// reader keeps the first parse error so Load can report it once.
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return n
}

func (r *reader) bool(key string, def bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(errors.Wrapf(err, "parse %s", key))
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
