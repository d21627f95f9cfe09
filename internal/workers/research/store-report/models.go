// internal/workers/research/store-report/models.go
package storereport

import "research-crew/internal/models"

type Input struct {
	Report ReportDraft `json:"report"`
}

// ReportDraft matches the synthesis output; storage assigns the id.
type ReportDraft struct {
	RequestID   string                `json:"requestId"`
	CompanyName string                `json:"companyName"`
	Depth       string                `json:"depth"`
	Sections    models.ReportSections `json:"sections"`
	Confidence  float64               `json:"confidence"`
	Sources     []models.Source       `json:"sources"`
}

type Output struct {
	ReportID  string `json:"reportId"`
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	StoredAt  string `json:"storedAt"` // ISO 8601
}
