package app

import "errors"

// Config holds everything the CLI hands an App instance.
type Config struct {
	JobPath string // hcl job document

	LogFormat string
	LogLevel  string

	// Overrides for the corresponding job-file fields. Empty or zero means
	// the job file (or the ambient settings) decides.
	Backend   string
	OutputDir string
	PreviewMS int64
	Workers   int

	NoCache bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.JobPath == "" {
		return nil, errors.New("JobPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}
