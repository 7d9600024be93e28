package a2a

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Well-known paths where an agent publishes its card.
const (
	AgentCardPath    = "/.well-known/agent.json"
	AgentCardAltPath = "/.well-known/agent-card.json"
)

// AgentCard is the discovery document describing one agent service.
type AgentCard struct {
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description" yaml:"description"`
	URL          string       `json:"url" yaml:"url"`
	Version      string       `json:"version" yaml:"version"`
	Capabilities Capabilities `json:"capabilities" yaml:"capabilities"`
	Skills       []Skill      `json:"skills,omitempty" yaml:"skills,omitempty"`
}

type Capabilities struct {
	Streaming bool `json:"streaming" yaml:"streaming"`
}

type Skill struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// LoadAgentCard reads a card definition from a YAML file. Missing fields
// keep the provided defaults.
func LoadAgentCard(path string, defaults AgentCard) (AgentCard, error) {
	card := defaults
	data, err := os.ReadFile(path)
	if err != nil {
		return card, fmt.Errorf("read agent card: %w", err)
	}
	if err := yaml.Unmarshal(data, &card); err != nil {
		return card, fmt.Errorf("parse agent card: %w", err)
	}
	return card, nil
}
