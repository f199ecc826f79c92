package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

// Provider is what the agents need from the prompt layer
type Provider interface {
	BuildPrompt(mode, variant string, data interface{}) (string, error)
	System(mode string) string
}

type PromptManager struct {
	templates map[string]map[string]*template.Template // mode -> variant -> template
	systems   map[string]string                        // mode -> system instruction
}

// loaded prompt file
type PromptTemplate struct {
	System   string            `yaml:"system"`
	Variants map[string]string `yaml:"variants"`
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		templates: make(map[string]map[string]*template.Template),
		systems:   make(map[string]string),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// renders the variant of mode with data
func (pm *PromptManager) BuildPrompt(mode, variant string, data interface{}) (string, error) {
	modeTemplates, exists := pm.templates[mode]
	if !exists {
		return "", fmt.Errorf("template not found for mode: %s", mode)
	}

	tmpl, exists := modeTemplates[variant]
	if !exists {
		return "", fmt.Errorf("variant '%s' not found for mode '%s'", variant, mode)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s/%s: %w", mode, variant, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// returns the system instruction of mode, or "" when the mode has none
func (pm *PromptManager) System(mode string) string {
	return pm.systems[mode]
}

func (pm *PromptManager) GetTemplates() map[string]map[string]*template.Template {
	return pm.templates
}

// lists loaded modes in sorted order
func (pm *PromptManager) Modes() []string {
	modes := make([]string, 0, len(pm.templates))
	for mode := range pm.templates {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		if len(promptTemplate.Variants) == 0 {
			return fmt.Errorf("template file %s has no variants", entry.Name())
		}

		mode := strings.TrimSuffix(entry.Name(), ".yaml")
		pm.systems[mode] = strings.TrimSpace(promptTemplate.System)
		pm.templates[mode] = make(map[string]*template.Template)

		for variant, text := range promptTemplate.Variants {
			tmpl, err := template.New(mode + "/" + variant).Option("missingkey=error").Parse(text)
			if err != nil {
				return fmt.Errorf("failed to compile %s/%s: %w", mode, variant, err)
			}
			pm.templates[mode][variant] = tmpl
		}
	}

	return nil
}
