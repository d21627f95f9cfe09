// internal/models/research.go
package models

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Depth selects which agents take part in a research run.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthComprehensive Depth = "comprehensive"
)

// ValidDepth reports whether d is a recognized research depth.
func ValidDepth(d Depth) bool {
	return d == DepthBasic || d == DepthComprehensive
}

// ResearchRequest is the variable set a gateway submission starts the
// process instance with.
type ResearchRequest struct {
	RequestID   string    `json:"requestId"`
	CompanyName string    `json:"companyName"`
	Depth       Depth     `json:"depth"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RequestID derives the stable request identifier for a company name.
// Repeated submissions of the same name map to the same id so cached
// reports can be reused.
func RequestID(companyName string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(companyName))))
	return hex.EncodeToString(sum[:])
}

// Source is a ranked web source discovered during research.
type Source struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance,omitempty"`
}
