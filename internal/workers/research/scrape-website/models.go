// internal/workers/research/scrape-website/models.go
package scrapewebsite

type Input struct {
	RequestID   string `json:"requestId"`
	CompanyName string `json:"companyName"`
	Website     string `json:"website"`
}

type Output struct {
	SiteContent SiteContent `json:"siteContent"`
}

type SiteContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Length  int    `json:"length"`
}
