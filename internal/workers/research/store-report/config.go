// internal/workers/research/store-report/config.go
package storereport

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	ESIndex  string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
		// Cached reports are reused by the gateway for repeat submissions.
		CacheTTL: time.Hour,
		ESIndex:  "research-reports",
	}
}
