// internal/workers/research/news-analysis/config.go
package newsanalysis

import "time"

type Config struct {
	Timeout         time.Duration
	MaxResults      int
	MaxDevelopments int
	TimeFilter      string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxResults:      8,
		MaxDevelopments: 5,
		// Past six months, matching the news analyst's brief.
		TimeFilter: "qdr:m6",
	}
}
