package config

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime settings, read from CADENZA_* environment
// variables.
type Config struct {
	Addr   string `default:":8080"`
	DBPath string `default:"cadenza.db" split_words:"true"`

	AnalyzerURL    string `split_words:"true"`
	AnalyzerID     string `split_words:"true"`
	AnalyzerSecret string `split_words:"true"`

	Workers   int `default:"2"`
	QueueSize int `default:"100" split_words:"true"`
	TopK      int `default:"20" split_words:"true"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("cadenza", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
