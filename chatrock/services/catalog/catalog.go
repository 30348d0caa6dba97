// Package catalog is the static registry of hosted models a chat can run against.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrModelNotFound = errors.New("model not found")

// ModelDescriptor identifies a hosted model. APIIdentifier is what the
// inference provider expects; ID is what clients send.
type ModelDescriptor struct {
	ID            string `yaml:"id" json:"id"`
	APIIdentifier string `yaml:"api_identifier" json:"apiIdentifier"`
	Label         string `yaml:"label" json:"label"`
	Description   string `yaml:"description" json:"description"`
}

const DefaultModelID = "amazon.titan-text-express-v1"

var builtin = []ModelDescriptor{
	{
		ID:            "amazon.titan-text-express-v1",
		APIIdentifier: "amazon.titan-text-express-v1",
		Label:         "Amazon Titan Text Express v1",
		Description:   "An express version of the Titan text model optimized for faster response times in content generation.",
	},
	{
		ID:            "anthropic.claude-3-5-sonnet-20241022-v2:0",
		APIIdentifier: "anthropic.claude-3-5-sonnet-20241022-v2:0",
		Label:         "Anthropic Claude 3.5 Sonnet (2024-10-22 v2.0)",
		Description:   "An advanced conversational AI model optimized for multi-turn dialogues with enhanced reasoning capabilities.",
	},
	{
		ID:            "anthropic.claude-3-5-haiku-20241022-v1:0",
		APIIdentifier: "anthropic.claude-3-5-haiku-20241022-v1:0",
		Label:         "Anthropic Claude 3.5 Haiku (2024-10-22 v1.0)",
		Description:   "A streamlined version of Claude 3.5, offering faster responses suitable for concise conversational tasks.",
	},
	{
		ID:            "meta.llama3-8b-instruct-v1:0",
		APIIdentifier: "meta.llama3-8b-instruct-v1:0",
		Label:         "Meta Llama 3 8B Instruct v1.0",
		Description:   "An 8-billion parameter model designed for instruction-following tasks, delivering precise and accurate outputs.",
	},
	{
		ID:            "mistral.mistral-7b-instruct-v0:2",
		APIIdentifier: "mistral.mistral-7b-instruct-v0:2",
		Label:         "Mistral 7B Instruct v0.2",
		Description:   "A 7-billion parameter model focused on instruction-based tasks, offering efficient and reliable performance.",
	},
	{
		ID:            "mistral.mixtral-8x7b-instruct-v0:1",
		APIIdentifier: "mistral.mixtral-8x7b-instruct-v0:1",
		Label:         "Mistral Mixtral 8x7B Instruct v0.1",
		Description:   "An ensemble model combining multiple 7B models to enhance instruction-following capabilities.",
	},
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	models    []ModelDescriptor
	byID      map[string]int
	defaultID string
}

// New builds a catalog from descriptors. defaultID may be empty, in which case
// the first descriptor is the default.
func New(models []ModelDescriptor, defaultID string) (*Catalog, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("catalog needs at least one model")
	}
	c := &Catalog{
		models: make([]ModelDescriptor, 0, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for _, m := range models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, fmt.Errorf("model without id")
		}
		if m.APIIdentifier == "" {
			m.APIIdentifier = m.ID
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.byID[m.ID] = len(c.models)
		c.models = append(c.models, m)
	}
	if defaultID == "" {
		defaultID = c.models[0].ID
	}
	if _, ok := c.byID[defaultID]; !ok {
		return nil, fmt.Errorf("default model %q is not in the catalog", defaultID)
	}
	c.defaultID = defaultID
	return c, nil
}

// Builtin returns the catalog of Bedrock models shipped with the binary.
func Builtin() *Catalog {
	c, err := New(builtin, DefaultModelID)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Default string            `yaml:"default"`
	Models  []ModelDescriptor `yaml:"models"`
}

// Load reads a YAML catalog file. An empty path yields the builtin catalog.
// defaultOverride, when set, wins over the file's default.
func Load(path, defaultOverride string) (*Catalog, error) {
	if path == "" {
		if defaultOverride == "" {
			return Builtin(), nil
		}
		return New(builtin, defaultOverride)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	if defaultOverride != "" {
		f.Default = defaultOverride
	}
	return New(f.Models, f.Default)
}

// Resolve looks up a descriptor by client-facing id.
func (c *Catalog) Resolve(modelID string) (ModelDescriptor, error) {
	i, ok := c.byID[strings.TrimSpace(modelID)]
	if !ok {
		return ModelDescriptor{}, fmt.Errorf("%w: %q", ErrModelNotFound, modelID)
	}
	return c.models[i], nil
}

// List returns descriptors in registration order.
func (c *Catalog) List() []ModelDescriptor {
	out := make([]ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

func (c *Catalog) DefaultID() string {
	return c.defaultID
}
