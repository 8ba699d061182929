package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const configFileEnv = "GATEWAY_CONFIG_FILE"

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Pesapal  PesapalConfig  `koanf:"pesapal"`
	Retry    RetryConfig    `koanf:"retry"`
	Orders   OrdersConfig   `koanf:"orders"`
	Booking  BookingConfig  `koanf:"booking"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PesapalConfig holds the merchant credentials and the URLs registered with the gateway.
type PesapalConfig struct {
	BaseURL             string        `koanf:"base_url" validate:"required,url"`
	ConsumerKey         string        `koanf:"consumer_key" validate:"required"`
	ConsumerSecret      string        `koanf:"consumer_secret" validate:"required"`
	Timeout             time.Duration `koanf:"timeout" validate:"required"`
	TokenTTL            time.Duration `koanf:"token_ttl" validate:"required"`
	TokenExpirySkew     time.Duration `koanf:"token_expiry_skew"`
	IPNURL              string        `koanf:"ipn_url" validate:"required,url"`
	IPNNotificationType string        `koanf:"ipn_notification_type" validate:"required,oneof=GET POST"`
	CallbackURL         string        `koanf:"callback_url" validate:"required,url"`
	NotificationID      string        `koanf:"notification_id"`
}

type RetryConfig struct {
	BaseDelay  time.Duration `koanf:"base_delay" validate:"required"`
	MaxDelay   time.Duration `koanf:"max_delay" validate:"required"`
	MaxRetries int           `koanf:"max_retries" validate:"min=0,max=10"`
}

type OrdersConfig struct {
	AllowedCurrencies  []string      `koanf:"allowed_currencies" validate:"required,min=1"`
	MaxAmount          float64       `koanf:"max_amount" validate:"required,gt=0,lte=1000000000000"`
	ReferencePrefix    string        `koanf:"reference_prefix" validate:"required"`
	DefaultDescription string        `koanf:"default_description" validate:"required"`
	DefaultBilling     BillingConfig `koanf:"default_billing"`
	SubmitDeadline     time.Duration `koanf:"submit_deadline" validate:"required"`
}

type BillingConfig struct {
	Email     string `koanf:"email" validate:"required,email"`
	Phone     string `koanf:"phone" validate:"required"`
	FirstName string `koanf:"first_name" validate:"required"`
	LastName  string `koanf:"last_name" validate:"required"`
}

type BookingConfig struct {
	ConfirmedStatus int16 `koanf:"confirmed_status" validate:"required"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

type WorkerConfig struct {
	Schedule             string        `koanf:"schedule" validate:"required"`
	BatchSize            int           `koanf:"batch_size" validate:"required"`
	MinAge               time.Duration `koanf:"min_age" validate:"required"`
	MaxAttempts          int           `koanf:"max_attempts" validate:"required"`
	InvalidRequeryWindow time.Duration `koanf:"invalid_requery_window" validate:"required"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                       "development",
		"server.port":                       "8080",
		"server.read_timeout":               "15s",
		"server.write_timeout":              "30s",
		"server.idle_timeout":               "60s",
		"server.request_timeout":            "45s",
		"database.ssl_mode":                 "disable",
		"database.max_open_conns":           10,
		"database.max_idle_conns":           2,
		"database.conn_max_lifetime":        "1h",
		"database.conn_max_idle_time":       "30m",
		"pesapal.base_url":                  "https://cybqa.pesapal.com/pesapalv3",
		"pesapal.timeout":                   "15s",
		"pesapal.token_ttl":                 "4m",
		"pesapal.token_expiry_skew":         "30s",
		"pesapal.ipn_notification_type":     "GET",
		"retry.base_delay":                  "500ms",
		"retry.max_delay":                   "5s",
		"retry.max_retries":                 3,
		"orders.allowed_currencies":         []string{"KES", "USD", "UGX", "TZS"},
		"orders.max_amount":                 10000000.0,
		"orders.reference_prefix":           "TXN",
		"orders.default_description":        "Payment description goes here",
		"orders.default_billing.email":      "user@example.com",
		"orders.default_billing.phone":      "254727632051",
		"orders.default_billing.first_name": "James",
		"orders.default_billing.last_name":  "Doe",
		"orders.submit_deadline":            "40s",
		"booking.confirmed_status":          2,
		"logger.level":                      "info",
		"logger.format":                     "json",
		"worker.schedule":                   "@every 1m",
		"worker.batch_size":                 50,
		"worker.min_age":                    "2m",
		"worker.max_attempts":               10,
		"worker.invalid_requery_window":     "24h",
	}
}

// LoadConfig layers defaults, an optional YAML file named by GATEWAY_CONFIG_FILE,
// and GATEWAY_ prefixed environment variables, in that order.
func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load config defaults", "error", err)
		return nil, err
	}

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Error("failed to load config file", "path", path, "error", err)
			return nil, err
		}
	}

	err := k.Load(env.Provider("GATEWAY_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "GATEWAY_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	mainConfig.Orders.AllowedCurrencies = splitList(mainConfig.Orders.AllowedCurrencies)

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// NewLogger builds the process logger from the configured level and format.
func (c LoggerConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Addr returns the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// splitList accepts both a YAML list and a comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
