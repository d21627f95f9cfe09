// internal/workers/research/synthesize-report/config.go
package synthesizereport

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRetries int
	AgentID    string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    120 * time.Second,
		MaxRetries: 2,
		AgentID:    "report-editor",
	}
}
