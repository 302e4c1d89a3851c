package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the webhook service. It is built once
// at startup and passed explicitly into each component constructor; nothing
// reads the environment after Load returns.
type Config struct {
	ServerPort  int    `mapstructure:"SERVER_PORT" validate:"gt=0,lte=65535"`
	MetricsPort int    `mapstructure:"METRICS_PORT" validate:"gt=0,lte=65535"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Nylas inbound/outbound. The webhook secret gates POST handling; the
	// API key is only needed for message refetches and may be absent.
	NylasWebhookSecret string `mapstructure:"NYLAS_WEBHOOK_SECRET"`
	NylasAPIKey        string `mapstructure:"NYLAS_API_KEY"`
	NylasAPIBaseURL    string `mapstructure:"NYLAS_API_BASE_URL" validate:"required,url"`

	// Salesys order dispatch. All of token/user/project must be present for
	// orders to be sent; otherwise dispatch is a logged no-op.
	SalesysAPIToken        string `mapstructure:"SALESYS_API_TOKEN"`
	SalesysAPIBaseURL      string `mapstructure:"SALESYS_API_BASE_URL" validate:"required,url"`
	SalesysUserID          string `mapstructure:"SALESYS_USER_ID"`
	SalesysProjectID       string `mapstructure:"SALESYS_PROJECT_ID"`
	SalesysTagIDs          string `mapstructure:"SALESYS_TAG_IDS"`
	SalesysCompanyFieldID  string `mapstructure:"SALESYS_COMPANY_FIELD_ID" validate:"required"`
	SalesysDomainFieldID   string `mapstructure:"SALESYS_DOMAIN_FIELD_ID" validate:"required"`
	SalesysResourceFieldID string `mapstructure:"SALESYS_RESOURCE_FIELD_ID" validate:"required"`

	NylasFetchTimeoutSeconds    int `mapstructure:"NYLAS_FETCH_TIMEOUT_SECONDS" validate:"gt=0"`
	OrderDispatchTimeoutSeconds int `mapstructure:"ORDER_DISPATCH_TIMEOUT_SECONDS" validate:"gt=0"`
	OrderDateOffsetDays         int `mapstructure:"ORDER_DATE_OFFSET_DAYS" validate:"gte=0"`
}

// TagIDs splits the comma-separated SALESYS_TAG_IDS value, dropping empties.
func (c *Config) TagIDs() []string {
	var ids []string
	for _, id := range strings.Split(c.SalesysTagIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// NylasFetchTimeout returns the outbound message-fetch client timeout.
func (c *Config) NylasFetchTimeout() time.Duration {
	return time.Duration(c.NylasFetchTimeoutSeconds) * time.Second
}

// OrderDispatchTimeout bounds the detached order-dispatch call.
func (c *Config) OrderDispatchTimeout() time.Duration {
	return time.Duration(c.OrderDispatchTimeoutSeconds) * time.Second
}

func Load(serviceName string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP") // APP_SERVER_PORT, APP_NYLAS_WEBHOOK_SECRET etc.

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("METRICS_PORT", 9090)
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("NYLAS_WEBHOOK_SECRET", "")
	v.SetDefault("NYLAS_API_KEY", "")
	v.SetDefault("NYLAS_API_BASE_URL", "https://api.us.nylas.com")

	v.SetDefault("SALESYS_API_TOKEN", "")
	v.SetDefault("SALESYS_API_BASE_URL", "https://app.salesys.se")
	v.SetDefault("SALESYS_USER_ID", "")
	v.SetDefault("SALESYS_PROJECT_ID", "")
	v.SetDefault("SALESYS_TAG_IDS", "")
	v.SetDefault("SALESYS_COMPANY_FIELD_ID", "64df0bc93b2f290008d6e3e2")
	v.SetDefault("SALESYS_DOMAIN_FIELD_ID", "64df0bdf3b2f290008d6e3e6")
	v.SetDefault("SALESYS_RESOURCE_FIELD_ID", "64df0c693b2f290008d6e3f0")

	v.SetDefault("NYLAS_FETCH_TIMEOUT_SECONDS", 10)
	v.SetDefault("ORDER_DISPATCH_TIMEOUT_SECONDS", 15)
	v.SetDefault("ORDER_DATE_OFFSET_DAYS", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Base configuration file ('config.defaults.yaml') not found for %s; using defaults and environment variables.", serviceName)
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
