// internal/workers/research/extract-data/handler_test.go
package extractdata

import (
	"context"
	"strings"
	"testing"
	"time"

	"research-crew/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContent = `Acme Corp was founded in 1987. Our mission is to build the best widgets. ` +
	`We offer three product lines and a consulting service. ` +
	`Contact us at hello@acmecorp.com or phone +1-555-0100. ` +
	`Our support team answers within one business day.`

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 2 * time.Second}, logger.NewTestLogger(t))
}

func TestExecute_ExtractsAllTypes(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		CompanyName: "Acme Corp",
		SiteContent: SiteContent{Content: sampleContent},
	})
	require.NoError(t, err)

	data := output.ExtractedData
	assert.Contains(t, data.ContactInfo, "hello@acmecorp.com")
	assert.Contains(t, data.ContactInfo, "support team")
	assert.Contains(t, data.Products, "product lines")
	assert.Contains(t, data.About, "founded in 1987")
	assert.Contains(t, data.About, "mission")
}

func TestExecute_SelectedTypesOnly(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		SiteContent: SiteContent{Content: sampleContent},
		DataTypes:   []string{"contact"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, output.ExtractedData.ContactInfo)
	assert.Empty(t, output.ExtractedData.Products)
	assert.Empty(t, output.ExtractedData.About)
}

func TestExecute_UnsupportedType(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{
		SiteContent: SiteContent{Content: sampleContent},
		DataTypes:   []string{"financials"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestExecute_EmptyContent(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		SiteContent: SiteContent{Content: ""},
	})
	require.NoError(t, err)
	assert.Empty(t, output.ExtractedData.ContactInfo)
	assert.Empty(t, output.ExtractedData.Products)
	assert.Empty(t, output.ExtractedData.About)
}

func TestExtract_SentenceLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("We sell a great product here. ")
	}
	// Sentences dedupe to one, so vary them.
	b.Reset()
	for i := 0; i < 20; i++ {
		b.WriteString("Product number ")
		b.WriteByte(byte('a' + i))
		b.WriteString(" is on offer. ")
	}

	got := extract(b.String(), DataTypeProducts)
	assert.Len(t, strings.Split(got, "\n"), 10)
}

func TestExtract_DedupesSentences(t *testing.T) {
	content := "Email our support team for contact details."
	got := extract(content, DataTypeContact)
	// Sentence matches multiple keywords but appears once.
	assert.Equal(t, "Email our support team for contact details", got)
}
