package persistence

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	FallbackDir     string        `envconfig:"RESULTS_FALLBACK_DIR" default:"validation_results_local"`
	MaxAttempts     int           `envconfig:"PERSIST_MAX_ATTEMPTS" default:"3"`
	RetryWait       time.Duration `envconfig:"PERSIST_RETRY_WAIT" default:"1s"`
	MaxPayloadChars int           `envconfig:"PERSIST_MAX_PAYLOAD_CHARS" default:"50000"`
	TruncateKeep    int           `envconfig:"PERSIST_TRUNCATE_KEEP" default:"20"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
