package validation

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DefaultErrorThreshold int           `envconfig:"DEFAULT_ERROR_THRESHOLD" default:"5"`
	LookupCacheTTL        time.Duration `envconfig:"LOOKUP_CACHE_TTL" default:"10m"`
	TopMarketCapLimit     int           `envconfig:"TOP_MARKET_CAP_LIMIT" default:"50"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
