// internal/workers/research/web-research/config.go
package webresearch

import "time"

type Config struct {
	Timeout      time.Duration
	MaxResults   int
	MinRelevance float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		MaxResults:   8,
		MinRelevance: 0.5,
	}
}
