// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validRegistry = `{
  "version": "1.0.0",
  "agents": [
    {
      "id": "web-researcher",
      "role": "Web Research Specialist",
      "goal": "Research companies",
      "backstory": "You are an expert web researcher.",
      "taskTemplate": "Research {{company_name}} at {{depth}} depth.",
      "expectedOutput": "Company information",
      "taskTypes": ["find-website", "web-research"],
      "depths": []
    },
    {
      "id": "market-analyst",
      "role": "Market Analysis Specialist",
      "goal": "Analyze markets",
      "backstory": "You are a senior market analyst.",
      "taskTemplate": "Analyze {{company_name}}.",
      "expectedOutput": "Market analysis",
      "taskTypes": ["market-analysis"],
      "depths": ["comprehensive"]
    }
  ]
}`

func TestLoadRegistry_Valid(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	assert.Len(t, reg.Agents, 2)
}

func TestLoadRegistry_MissingRequiredField(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
	  "version": "1.0.0",
	  "agents": [{"id": "x", "role": "Role", "goal": "Goal"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestLoadRegistry_BadDepthValue(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
	  "version": "1.0.0",
	  "agents": [{
	    "id": "x", "role": "R", "goal": "G", "backstory": "B",
	    "taskTemplate": "T", "expectedOutput": "O",
	    "depths": ["exhaustive"]
	  }]
	}`))
	require.Error(t, err)
}

func TestLoadRegistry_DuplicateID(t *testing.T) {
	_, err := LoadRegistry(writeRegistry(t, `{
	  "version": "1.0.0",
	  "agents": [
	    {"id": "x", "role": "R", "goal": "G", "backstory": "B", "taskTemplate": "T", "expectedOutput": "O"},
	    {"id": "x", "role": "R2", "goal": "G2", "backstory": "B2", "taskTemplate": "T2", "expectedOutput": "O2"}
	  ]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoadRegistry_FileMissing(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestRegistryLookups(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)

	assert.NotNil(t, reg.Get("web-researcher"))
	assert.Nil(t, reg.Get("unknown"))

	byTask := reg.ForTaskType("market-analysis")
	require.NotNil(t, byTask)
	assert.Equal(t, "market-analyst", byTask.ID)
	assert.Nil(t, reg.ForTaskType("no-such-task"))
}

func TestAgentProfile_SupportsDepth(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)

	researcher := reg.Get("web-researcher")
	assert.True(t, researcher.SupportsDepth("basic"))
	assert.True(t, researcher.SupportsDepth("comprehensive"))

	analyst := reg.Get("market-analyst")
	assert.False(t, analyst.SupportsDepth("basic"))
	assert.True(t, analyst.SupportsDepth("comprehensive"))
}

func TestAgentProfile_RenderTask(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)

	got := reg.Get("web-researcher").RenderTask("Acme Corp", "basic")
	assert.Equal(t, "Research Acme Corp at basic depth.", got)
}

func TestAgentProfile_SystemPrompt(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, validRegistry))
	require.NoError(t, err)

	prompt := reg.Get("market-analyst").SystemPrompt()
	assert.Contains(t, prompt, "Market Analysis Specialist")
	assert.Contains(t, prompt, "senior market analyst")
	assert.Contains(t, prompt, "Analyze markets")
}

func TestLoadRegistry_ShippedConfig(t *testing.T) {
	reg, err := LoadRegistry("../../configs/agents.json")
	require.NoError(t, err)

	for _, id := range []string{"web-researcher", "data-extractor", "market-analyst", "news-analyst", "report-editor"} {
		assert.NotNil(t, reg.Get(id), "missing agent %s", id)
	}
	assert.NotNil(t, reg.ForTaskType("synthesize-report"))
}
