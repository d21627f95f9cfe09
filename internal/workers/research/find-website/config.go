// internal/workers/research/find-website/config.go
package findwebsite

import "time"

type Config struct {
	Timeout    time.Duration
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxResults: 5,
	}
}
