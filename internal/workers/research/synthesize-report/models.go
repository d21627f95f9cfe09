// internal/workers/research/synthesize-report/models.go
package synthesizereport

import "research-crew/internal/models"

type Input struct {
	RequestID     string        `json:"requestId"`
	CompanyName   string        `json:"companyName"`
	Depth         string        `json:"depth"`
	ResearchData  ResearchData  `json:"researchData"`
	SiteContent   SiteContent   `json:"siteContent"`
	ExtractedData ExtractedData `json:"extractedData"`
	MarketData    MarketData    `json:"marketData"`
	NewsData      NewsData      `json:"newsData"`
}

type ResearchData struct {
	Sources []models.Source `json:"sources"`
	Summary string          `json:"summary"`
}

type SiteContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

type ExtractedData struct {
	ContactInfo string `json:"contactInfo"`
	Products    string `json:"products"`
	About       string `json:"about"`
}

type MarketData struct {
	Positioning string          `json:"positioning"`
	Trends      []string        `json:"trends"`
	KeyMetrics  []string        `json:"keyMetrics"`
	Sources     []models.Source `json:"sources"`
}

type NewsData struct {
	Developments   []string        `json:"developments"`
	Sentiment      string          `json:"sentiment"`
	SentimentScore float64         `json:"sentimentScore"`
	Sources        []models.Source `json:"sources"`
}

type Output struct {
	Report ReportDraft `json:"report"`
}

// ReportDraft is the synthesized report before storage assigns an id.
type ReportDraft struct {
	RequestID   string                `json:"requestId"`
	CompanyName string                `json:"companyName"`
	Depth       string                `json:"depth"`
	Sections    models.ReportSections `json:"sections"`
	Confidence  float64               `json:"confidence"`
	Sources     []models.Source       `json:"sources"`
}
