// internal/workers/research/market-analysis/config.go
package marketanalysis

import "time"

type Config struct {
	Timeout    time.Duration
	MaxResults int
	MaxTrends  int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxResults: 8,
		MaxTrends:  5,
	}
}
