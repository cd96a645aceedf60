// pkg/phaseplan/plan.go
package phaseplan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Phase is one topical segment of the interview.
type Phase struct {
	ID            string   `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	ContextPrompt string   `yaml:"context_prompt" json:"context_prompt"`
	FocusAreas    []string `yaml:"focus_areas" json:"focus_areas"`
}

// Plan is the fixed ordered phase sequence an interview walks through.
type Plan struct {
	Name   string  `yaml:"name" json:"name"`
	Phases []Phase `yaml:"phases" json:"phases"`
}

// Load reads a plan from a YAML file and validates it.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file %s: %w", path, err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan file %s: %w", path, err)
	}

	if err := Validate(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Order returns the phase ids in interview order.
func (p *Plan) Order() []string {
	order := make([]string, len(p.Phases))
	for i, ph := range p.Phases {
		order[i] = ph.ID
	}
	return order
}

// Phase looks up a phase definition by id.
func (p *Plan) Phase(id string) (Phase, bool) {
	for _, ph := range p.Phases {
		if ph.ID == id {
			return ph, true
		}
	}
	return Phase{}, false
}

// Default returns the built-in five-phase plan used when no plan file is
// configured.
func Default() *Plan {
	return &Plan{
		Name: "standard-behavioral",
		Phases: []Phase{
			{
				ID:            "self-introduction",
				Title:         "Self introduction",
				ContextPrompt: "Open the interview and ask the candidate to introduce themselves.",
				FocusAreas:    []string{"background", "current role"},
			},
			{
				ID:            "experience",
				Title:         "Work experience",
				ContextPrompt: "Dig into concrete projects the candidate has delivered.",
				FocusAreas:    []string{"responsibilities", "results", "collaboration"},
			},
			{
				ID:            "strengths",
				Title:         "Strengths and weaknesses",
				ContextPrompt: "Ask for specific strengths backed by examples, and honest weaknesses.",
				FocusAreas:    []string{"self-awareness", "examples"},
			},
			{
				ID:            "motivation",
				Title:         "Motivation",
				ContextPrompt: "Explore why the candidate wants this role and company.",
				FocusAreas:    []string{"career goals", "company fit"},
			},
			{
				ID:            "closing",
				Title:         "Closing",
				ContextPrompt: "Give the candidate room for final remarks and questions.",
				FocusAreas:    []string{"questions for the interviewer"},
			},
		},
	}
}
