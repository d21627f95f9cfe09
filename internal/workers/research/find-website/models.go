// internal/workers/research/find-website/models.go
package findwebsite

import "research-crew/internal/models"

type Input struct {
	RequestID   string `json:"requestId"`
	CompanyName string `json:"companyName"`
}

type Output struct {
	Website        string          `json:"website"`
	WebsiteSources []models.Source `json:"websiteSources"`
}
