package models

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// model keys selectable by users
const (
	KeyFast   = "fast"
	KeySmart  = "smart"
	KeyVision = "vision"
)

const smartSystemPrompt = "You are Luch Neuro (also known as Luch GPT), an expert AI assistant " +
	"who deeply understands any topic the user brings up. Always introduce yourself as " +
	"\"Luch Neuro\" or \"Luch GPT\" if asked. Your default reply language is Russian; use " +
	"Russian unless the user writes in another language or explicitly asks for a different one. " +
	"Be thorough, accurate and professional while keeping a friendly tone."

// one selectable model variant
type Model struct {
	Key          string `yaml:"key" json:"key"`
	ProviderID   string `yaml:"provider_id" json:"provider_id"`
	Title        string `yaml:"title" json:"title"`
	Vision       bool   `yaml:"vision" json:"vision"`
	FreeTier     bool   `yaml:"free_tier" json:"free_tier"`
	PremiumLimit int64  `yaml:"premium_limit" json:"premium_limit"`
	SystemPrompt string `yaml:"system_prompt" json:"-"`
}

// the set of models keyed by Model.Key
type Catalog struct {
	models map[string]Model
}

type catalogFile struct {
	Models []Model `yaml:"models"`
}

// the built-in catalog
func Default() *Catalog {
	return NewCatalog([]Model{
		{
			Key:          KeyFast,
			ProviderID:   "microsoft/phi-4",
			Title:        "Fast",
			FreeTier:     true,
			PremiumLimit: 45,
		},
		{
			Key:          KeySmart,
			ProviderID:   "deepseek-ai/DeepSeek-R1",
			Title:        "Smart",
			PremiumLimit: 15,
			SystemPrompt: smartSystemPrompt,
		},
		{
			Key:          KeyVision,
			ProviderID:   "meta-llama/Llama-3.2-90B-Vision-Instruct",
			Title:        "Vision",
			Vision:       true,
			PremiumLimit: 15,
		},
	})
}

// builds a catalog from a list of models
func NewCatalog(list []Model) *Catalog {
	c := &Catalog{models: make(map[string]Model, len(list))}

	for _, m := range list {
		c.models[m.Key] = m
	}

	return c
}

// reads a YAML catalog and merges it over the defaults; an empty path returns the defaults
func Load(path string) (*Catalog, error) {
	catalog := Default()

	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	return catalog.merge(data)
}

func (c *Catalog) merge(data []byte) (*Catalog, error) {
	var file catalogFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse models file: %w", err)
	}

	for _, m := range file.Models {
		if m.Key == "" || m.ProviderID == "" {
			return nil, fmt.Errorf("model entries need key and provider_id")
		}

		if base, ok := c.models[m.Key]; ok && m.SystemPrompt == "" {
			m.SystemPrompt = base.SystemPrompt
		}

		c.models[m.Key] = m
	}

	return c, nil
}

// looks up a model by key
func (c *Catalog) Get(key string) (Model, bool) {
	m, ok := c.models[key]
	return m, ok
}

// sorted model keys
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.models))

	for key := range c.models {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// per-model premium ceiling; ok is false for unknown keys
func (c *Catalog) PremiumLimit(key string) (int64, bool) {
	m, ok := c.models[key]
	if !ok || m.PremiumLimit <= 0 {
		return 0, false
	}

	return m.PremiumLimit, true
}

// whether free-tier users may select the model
func (c *Catalog) AllowedForFree(key string) bool {
	m, ok := c.models[key]
	return ok && m.FreeTier
}
