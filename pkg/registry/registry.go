// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// LoadRegistry reads and validates the agent registry file.
func LoadRegistry(path string) (*AgentRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}

	schemaLoader := gojsonschema.NewGoLoader(registrySchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("registry: validate %s: %w", path, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("registry: %s invalid: %s", path, strings.Join(msgs, "; "))
	}

	var reg AgentRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(reg.Agents))
	for _, a := range reg.Agents {
		if seen[a.ID] {
			return nil, fmt.Errorf("registry: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
	}

	return &reg, nil
}

// Get returns the profile with the given id, or nil when unknown.
func (r *AgentRegistry) Get(id string) *AgentProfile {
	for i := range r.Agents {
		if r.Agents[i].ID == id {
			return &r.Agents[i]
		}
	}
	return nil
}

// ForTaskType returns the profile wired to the given Zeebe task type,
// or nil when none claims it.
func (r *AgentRegistry) ForTaskType(taskType string) *AgentProfile {
	for i := range r.Agents {
		for _, tt := range r.Agents[i].TaskTypes {
			if tt == taskType {
				return &r.Agents[i]
			}
		}
	}
	return nil
}

// SupportsDepth reports whether the agent participates in runs of the
// given depth. An empty Depths list means all depths.
func (a *AgentProfile) SupportsDepth(depth string) bool {
	if len(a.Depths) == 0 {
		return true
	}
	for _, d := range a.Depths {
		if d == depth {
			return true
		}
	}
	return false
}

// RenderTask fills the profile's task template for one research run.
func (a *AgentProfile) RenderTask(companyName, depth string) string {
	return strings.NewReplacer(
		"{{company_name}}", companyName,
		"{{depth}}", depth,
	).Replace(a.TaskTemplate)
}

// SystemPrompt builds the persona preamble sent as the system message.
func (a *AgentProfile) SystemPrompt() string {
	return fmt.Sprintf("You are a %s. %s\n\nYour goal: %s", a.Role, a.Backstory, a.Goal)
}
