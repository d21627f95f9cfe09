// internal/workers/research/extract-data/models.go
package extractdata

type Input struct {
	RequestID   string      `json:"requestId"`
	CompanyName string      `json:"companyName"`
	SiteContent SiteContent `json:"siteContent"`
	DataTypes   []string    `json:"dataTypes,omitempty"`
}

type SiteContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Length  int    `json:"length"`
}

type Output struct {
	ExtractedData ExtractedData `json:"extractedData"`
}

type ExtractedData struct {
	ContactInfo string `json:"contactInfo"`
	Products    string `json:"products"`
	About       string `json:"about"`
}

// Supported extraction data types.
const (
	DataTypeContact  = "contact"
	DataTypeProducts = "products"
	DataTypeAbout    = "about"
)
