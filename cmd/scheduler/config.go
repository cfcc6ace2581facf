package scheduler

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Schedule is a five-field cron expression evaluated in UTC.
	Schedule string `envconfig:"VALIDATION_SCHEDULE" default:"0 6 * * *"`
	// RunOnStart triggers a validate-all pass as soon as the scheduler starts.
	RunOnStart bool `envconfig:"VALIDATION_RUN_ON_START" default:"false"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
