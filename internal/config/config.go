/**
 * @description
 * This file is responsible for managing the configuration of the account
 * intake service. It uses the Viper library to read settings from environment
 * variables or a .env file, making the application environment-agnostic.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 *
 * @notes
 * - Configuration is loaded into a `Config` struct for type-safe access
 *   throughout the application and injected at construction; nothing reads
 *   ambient environment state after startup.
 * - Per-environment destination names and endpoint URLs are opaque strings
 *   supplied here.
 */
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	SalesforceInstanceURL string `mapstructure:"SALESFORCE_INSTANCE_URL"`
	SalesforceAccessToken string `mapstructure:"SALESFORCE_ACCESS_TOKEN"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	EventsExchange        string `mapstructure:"ACCOUNT_EVENTS_EXCHANGE"`
	EventsRoutingKey      string `mapstructure:"ACCOUNT_EVENTS_ROUTING_KEY"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind env vars explicitly
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("SALESFORCE_INSTANCE_URL")
	_ = viper.BindEnv("SALESFORCE_ACCESS_TOKEN")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ACCOUNT_EVENTS_EXCHANGE")
	_ = viper.BindEnv("ACCOUNT_EVENTS_ROUTING_KEY")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ACCOUNT_EVENTS_EXCHANGE", "integration.events")
	viper.SetDefault("ACCOUNT_EVENTS_ROUTING_KEY", "account.created")

	if err = viper.ReadInConfig(); err != nil {
		// A missing config file is not fatal; environment variables are the
		// normal source in containerized deployments.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}

	if strings.TrimSpace(config.SalesforceInstanceURL) == "" {
		return Config{}, fmt.Errorf("SALESFORCE_INSTANCE_URL must be configured")
	}
	if strings.TrimSpace(config.SalesforceAccessToken) == "" {
		return Config{}, fmt.Errorf("SALESFORCE_ACCESS_TOKEN must be configured")
	}
	if strings.TrimSpace(config.RabbitMQURL) == "" {
		return Config{}, fmt.Errorf("RABBITMQ_URL must be configured")
	}

	return config, nil
}
