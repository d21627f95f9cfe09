// internal/workers/research/web-research/models.go
package webresearch

import "research-crew/internal/models"

type Input struct {
	RequestID   string `json:"requestId"`
	CompanyName string `json:"companyName"`
	Depth       string `json:"depth"`
}

type Output struct {
	ResearchData ResearchData `json:"researchData"`
}

type ResearchData struct {
	Sources []models.Source `json:"sources"`
	Summary string          `json:"summary"`
}
