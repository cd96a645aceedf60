// pkg/phaseplan/schema.go
package phaseplan

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// planSchema is the JSON schema every loaded plan must satisfy.
var planSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"name", "phases"},
	"properties": map[string]interface{}{
		"name": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"phases": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"id", "title"},
				"properties": map[string]interface{}{
					"id": map[string]interface{}{
						"type":      "string",
						"pattern":   "^[a-z][a-z0-9-]*$",
						"minLength": 1,
					},
					"title": map[string]interface{}{
						"type":      "string",
						"minLength": 1,
					},
					"context_prompt": map[string]interface{}{
						"type": "string",
					},
					"focus_areas": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	},
}

// Validate checks the plan against the schema and structural rules that the
// schema cannot express (unique ids).
func Validate(plan *Plan) error {
	doc := map[string]interface{}{
		"name":   plan.Name,
		"phases": phasesAsMaps(plan.Phases),
	}

	schemaLoader := gojsonschema.NewGoLoader(planSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("plan validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("plan validation failed: %v", errs)
	}

	seen := make(map[string]bool, len(plan.Phases))
	for _, ph := range plan.Phases {
		if seen[ph.ID] {
			return fmt.Errorf("plan validation failed: duplicate phase id %q", ph.ID)
		}
		seen[ph.ID] = true
	}

	return nil
}

func phasesAsMaps(phases []Phase) []interface{} {
	out := make([]interface{}, len(phases))
	for i, ph := range phases {
		areas := make([]interface{}, len(ph.FocusAreas))
		for j, a := range ph.FocusAreas {
			areas[j] = a
		}
		out[i] = map[string]interface{}{
			"id":             ph.ID,
			"title":          ph.Title,
			"context_prompt": ph.ContextPrompt,
			"focus_areas":    areas,
		}
	}
	return out
}
