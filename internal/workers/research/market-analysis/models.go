// internal/workers/research/market-analysis/models.go
package marketanalysis

import "research-crew/internal/models"

type Input struct {
	RequestID   string `json:"requestId"`
	CompanyName string `json:"companyName"`
	Depth       string `json:"depth"`
}

type Output struct {
	MarketData MarketData `json:"marketData"`
}

type MarketData struct {
	Positioning string          `json:"positioning"`
	Trends      []string        `json:"trends"`
	KeyMetrics  []string        `json:"keyMetrics"`
	Sources     []models.Source `json:"sources"`
}
