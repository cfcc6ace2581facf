package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendPostgres = "postgres"
	BackendREST     = "rest"
)

type Config struct {
	// SourceBackend selects where datasets are read from: "postgres" or "rest".
	SourceBackend string        `envconfig:"SOURCE_BACKEND" default:"postgres"`
	SupabaseURL   string        `envconfig:"SUPABASE_URL" default:""`
	SupabaseKey   string        `envconfig:"SUPABASE_KEY" default:""`
	PageSize      int           `envconfig:"REST_PAGE_SIZE" default:"1000"`
	Timeout       time.Duration `envconfig:"REST_TIMEOUT" default:"30s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
