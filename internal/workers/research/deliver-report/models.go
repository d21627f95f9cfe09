// internal/workers/research/deliver-report/models.go
package deliverreport

type Input struct {
	ReportID    string    `json:"reportId"`
	RequestID   string    `json:"requestId"`
	CompanyName string    `json:"companyName"`
	Recipient   Recipient `json:"recipient"`
	Priority    string    `json:"priority,omitempty"`
	Report      Report    `json:"report"`
}

type Recipient struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Report struct {
	Sections struct {
		ExecutiveSummary string `json:"executiveSummary"`
	} `json:"sections"`
}

type Output struct {
	DeliveryID string `json:"deliveryId"`
	Status     string `json:"status"` // "sent", "failed", "disabled"
	SentAt     string `json:"sentAt"` // ISO 8601
}

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
