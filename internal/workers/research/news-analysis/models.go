// internal/workers/research/news-analysis/models.go
package newsanalysis

import "research-crew/internal/models"

type Input struct {
	RequestID   string `json:"requestId"`
	CompanyName string `json:"companyName"`
	Depth       string `json:"depth"`
}

type Output struct {
	NewsData NewsData `json:"newsData"`
}

type NewsData struct {
	Developments   []string        `json:"developments"`
	Sentiment      string          `json:"sentiment"`
	SentimentScore float64         `json:"sentimentScore"`
	Sources        []models.Source `json:"sources"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)
