// internal/models/report.go
package models

import "time"

// ReportSections holds the named sections of a finished research report.
type ReportSections struct {
	ExecutiveSummary   string `json:"executiveSummary"`
	CompanyOverview    string `json:"companyOverview"`
	ProductsServices   string `json:"productsServices"`
	MarketPosition     string `json:"marketPosition,omitempty"`
	RecentDevelopments string `json:"recentDevelopments,omitempty"`
	ContactInfo        string `json:"contactInfo,omitempty"`
}

// Report is the stored result of one research run.
type Report struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"requestId"`
	CompanyName string         `json:"companyName"`
	Depth       Depth          `json:"depth"`
	Sections    ReportSections `json:"sections"`
	Confidence  float64        `json:"confidence"`
	Sources     []Source       `json:"sources"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Report statuses surfaced by the gateway.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
)
