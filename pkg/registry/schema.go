// pkg/registry/schema.go
package registry

type AgentRegistry struct {
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	Agents      []AgentProfile `json:"agents"`
}

// AgentProfile describes one research specialist: who it is, what it is
// for, and the task it is handed per research run. Task templates use
// {{company_name}} and {{depth}} placeholders.
type AgentProfile struct {
	ID             string   `json:"id"`
	Role           string   `json:"role"`
	Goal           string   `json:"goal"`
	Backstory      string   `json:"backstory"`
	TaskTemplate   string   `json:"taskTemplate"`
	ExpectedOutput string   `json:"expectedOutput"`
	TaskTypes      []string `json:"taskTypes"`
	Depths         []string `json:"depths"`
}

// registrySchema validates agents.json on load. Kept as a Go map so the
// schema ships inside the binary rather than as a second config file.
var registrySchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"version", "agents"},
	"properties": map[string]interface{}{
		"version":     map[string]interface{}{"type": "string"},
		"lastUpdated": map[string]interface{}{"type": "string"},
		"agents": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"id", "role", "goal", "backstory", "taskTemplate", "expectedOutput"},
				"properties": map[string]interface{}{
					"id":             map[string]interface{}{"type": "string", "minLength": 1},
					"role":           map[string]interface{}{"type": "string", "minLength": 1},
					"goal":           map[string]interface{}{"type": "string", "minLength": 1},
					"backstory":      map[string]interface{}{"type": "string", "minLength": 1},
					"taskTemplate":   map[string]interface{}{"type": "string", "minLength": 1},
					"expectedOutput": map[string]interface{}{"type": "string", "minLength": 1},
					"taskTypes": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
					"depths": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string", "enum": []interface{}{"basic", "comprehensive"}},
					},
				},
			},
		},
	},
}
