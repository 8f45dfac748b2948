package processing

import (
	"fmt"
	"strings"

	"github.com/centomomd/dictation-server/internal/registry"
)

// Alternatives lists valid substitutes when a combination is rejected.
type Alternatives struct {
	Sections  []string `json:"sections,omitempty"`
	Modes     []string `json:"modes,omitempty"`
	Templates []string `json:"templates,omitempty"`
}

// CompatibilityResult reports whether a section/mode/template/language
// combination is processable.
type CompatibilityResult struct {
	Compatible   bool         `json:"compatible"`
	Issues       []string     `json:"issues"`
	Suggestions  []string     `json:"suggestions"`
	Alternatives Alternatives `json:"alternatives"`
}

// CompatibilityChecker validates combinations against the static
// registries. Every check runs; issues accumulate rather than
// short-circuit so the caller sees the full picture at once.
type CompatibilityChecker struct {
	sections  *registry.SectionManager
	modes     *registry.ModeManager
	templates *registry.TemplateManager
}

func NewCompatibilityChecker(sections *registry.SectionManager, modes *registry.ModeManager, templates *registry.TemplateManager) *CompatibilityChecker {
	return &CompatibilityChecker{sections: sections, modes: modes, templates: templates}
}

func (c *CompatibilityChecker) Check(req Request) CompatibilityResult {
	result := CompatibilityResult{
		Issues:      []string{},
		Suggestions: []string{},
	}

	section, sectionOK := c.sections.GetSection(req.SectionID)
	if !sectionOK {
		result.Issues = append(result.Issues, fmt.Sprintf("Section '%s' not found", req.SectionID))
		result.Alternatives.Sections = c.sections.AllSectionIDs()
	}

	mode, modeOK := c.modes.GetMode(req.ModeID)
	if !modeOK {
		result.Issues = append(result.Issues, fmt.Sprintf("Mode '%s' not found", req.ModeID))
		result.Alternatives.Modes = c.modes.AllModeIDs()
	}

	var template registry.TemplateConfig
	templateOK := false
	if req.TemplateID != "" {
		template, templateOK = c.templates.GetTemplate(req.TemplateID)
		if !templateOK {
			result.Issues = append(result.Issues, fmt.Sprintf("Template '%s' not found", req.TemplateID))
			result.Alternatives.Templates = c.templates.AllTemplateIDs()
		}
	}

	if sectionOK && modeOK && !c.modes.SupportsSection(req.ModeID, req.SectionID) {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Mode '%s' does not support section '%s'", req.ModeID, req.SectionID))
		result.Alternatives.Modes = c.modes.ModesForSection(req.SectionID)
	}

	if sectionOK && !c.sections.SupportsLanguage(req.SectionID, req.Language) {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Section '%s' does not support language '%s'", req.SectionID, req.Language))
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Section '%s' supports: %s", req.SectionID, strings.Join(section.SupportedLanguages, ", ")))
	}

	if modeOK && !c.modes.SupportsLanguage(req.ModeID, req.Language) {
		result.Issues = append(result.Issues,
			fmt.Sprintf("Mode '%s' does not support language '%s'", req.ModeID, req.Language))
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("Mode '%s' supports: %s", req.ModeID, strings.Join(mode.SupportedLanguages, ", ")))
	}

	if templateOK && sectionOK && modeOK {
		if !c.templates.SupportsSection(req.TemplateID, req.SectionID) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Template '%s' is not compatible with section '%s'", req.TemplateID, req.SectionID))
			result.Alternatives.Templates = c.templates.TemplatesForSection(req.SectionID)
		}
		if !c.templates.SupportsMode(req.TemplateID, req.ModeID) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Template '%s' is not compatible with mode '%s'", req.TemplateID, req.ModeID))
			// Overwrites any section-based template alternatives above.
			result.Alternatives.Templates = c.templates.TemplatesForMode(req.ModeID)
		}
		if !c.templates.SupportsLanguage(req.TemplateID, req.Language) {
			result.Issues = append(result.Issues,
				fmt.Sprintf("Template '%s' does not support language '%s'", req.TemplateID, req.Language))
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("Template '%s' supports: %s", req.TemplateID, strings.Join(template.SupportedLanguages, ", ")))
		}
	}

	result.Compatible = len(result.Issues) == 0
	if !result.Compatible {
		result.Suggestions = append(result.Suggestions,
			"Consider using one of the suggested alternatives")
	}
	return result
}
