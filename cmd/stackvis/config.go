package main

import (
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	ServiceConfig struct {
		Environment string `env:"SENTRY_ENVIRONMENT" env-default:"development"`
		SentryDSN   string `env:"SENTRY_DSN"`

		LogLevel string `env:"LOG_LEVEL" env-default:"info"`
		Port     string `env:"PORT" env-default:"8080"`

		KafkaBrokers []string `env:"STACKVIS_KAFKA_BROKERS" env-separator:","`
		KafkaTopic   string   `env:"STACKVIS_KAFKA_TOPIC" env-default:"stackvis-trees"`

		OutputBucket string `env:"STACKVIS_OUTPUT_BUCKET"`
	}
)

func loadConfig() (ServiceConfig, error) {
	var c ServiceConfig
	err := cleanenv.ReadEnv(&c)
	return c, err
}
