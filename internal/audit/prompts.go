package audit

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	promptCatalogDecodeErrorTemplate = "unable to decode prompt catalog: %w"
	evidenceBlockTemplateConstant    = "%s:\n%s\n\n"
	requirementTitleTemplateConstant = "%d. %s:\n"
	requirementItemTemplateConstant  = "   - %s\n"
	focusItemTemplateConstant        = "- %s\n"
	complianceSeparatorConstant      = ", "
	technologySeparatorConstant      = ", "
	promptSectionSeparatorConstant   = "\n\n"
)

//go:embed prompts.yaml
var embeddedPromptCatalog []byte

// PromptCatalog holds every prompt template used by the pipeline.
type PromptCatalog struct {
	Scan struct {
		DependencyInventory string `yaml:"dependency_inventory"`
		CodePatterns        string `yaml:"code_patterns"`
		Configurations      string `yaml:"configurations"`
	} `yaml:"scan"`
	Enrichment struct {
		KnownVulnerabilities string `yaml:"known_vulnerabilities"`
		ZeroDayPatterns      string `yaml:"zero_day_patterns"`
	} `yaml:"enrichment"`
	Synthesis struct {
		Preamble string `yaml:"preamble"`
		Evidence struct {
			Dependencies         string `yaml:"dependencies"`
			CodePatterns         string `yaml:"code_patterns"`
			Configurations       string `yaml:"configurations"`
			KnownVulnerabilities string `yaml:"known_vulnerabilities"`
			ZeroDayPatterns      string `yaml:"zero_day_patterns"`
		} `yaml:"evidence"`
		RequirementsHeading string               `yaml:"requirements_heading"`
		Requirements        []RequirementSection `yaml:"requirements"`
		FocusHeading        string               `yaml:"focus_heading"`
		Focus               struct {
			ZeroDay     string `yaml:"zero_day"`
			SupplyChain string `yaml:"supply_chain"`
			Compliance  string `yaml:"compliance"`
		} `yaml:"focus"`
		OutputFormat string `yaml:"output_format"`
	} `yaml:"synthesis"`
	Intelligence struct {
		ThreatLandscape     string `yaml:"threat_landscape"`
		DefaultTechnologies string `yaml:"default_technologies"`
	} `yaml:"intelligence"`
}

// RequirementSection is one numbered part of the audit requirements.
type RequirementSection struct {
	Title string   `yaml:"title"`
	Items []string `yaml:"items"`
}

// Focus narrows the synthesis prompt toward optional areas.
type Focus struct {
	ZeroDay             bool
	SupplyChain         bool
	ComplianceStandards []string
}

// LoadPromptCatalog decodes the embedded prompt catalog.
func LoadPromptCatalog() (PromptCatalog, error) {
	var catalog PromptCatalog
	if decodeError := yaml.Unmarshal(embeddedPromptCatalog, &catalog); decodeError != nil {
		return PromptCatalog{}, fmt.Errorf(promptCatalogDecodeErrorTemplate, decodeError)
	}
	return catalog, nil
}

func (catalog PromptCatalog) dependencyInventoryPrompt(projectPath string) string {
	return fmt.Sprintf(catalog.Scan.DependencyInventory, projectPath)
}

func (catalog PromptCatalog) codePatternPrompt(projectPath string) string {
	return fmt.Sprintf(catalog.Scan.CodePatterns, projectPath)
}

func (catalog PromptCatalog) configurationPrompt(projectPath string) string {
	return fmt.Sprintf(catalog.Scan.Configurations, projectPath)
}

func (catalog PromptCatalog) knownVulnerabilityPrompt(dependencyEvidence string) string {
	return fmt.Sprintf(catalog.Enrichment.KnownVulnerabilities, dependencyEvidence)
}

func (catalog PromptCatalog) zeroDayPrompt(codePatternEvidence string) string {
	return fmt.Sprintf(catalog.Enrichment.ZeroDayPatterns, codePatternEvidence)
}

func (catalog PromptCatalog) synthesisPrompt(scanArtifacts ScanArtifacts, enrichmentArtifacts EnrichmentArtifacts, focus Focus) string {
	var builder strings.Builder
	builder.WriteString(catalog.Synthesis.Preamble)
	builder.WriteString(promptSectionSeparatorConstant)

	evidenceLabels := catalog.Synthesis.Evidence
	builder.WriteString(fmt.Sprintf(evidenceBlockTemplateConstant, evidenceLabels.Dependencies, scanArtifacts.Dependencies))
	builder.WriteString(fmt.Sprintf(evidenceBlockTemplateConstant, evidenceLabels.CodePatterns, scanArtifacts.CodePatterns))
	builder.WriteString(fmt.Sprintf(evidenceBlockTemplateConstant, evidenceLabels.Configurations, scanArtifacts.Configurations))
	builder.WriteString(fmt.Sprintf(evidenceBlockTemplateConstant, evidenceLabels.KnownVulnerabilities, enrichmentArtifacts.KnownVulnerabilities))
	builder.WriteString(fmt.Sprintf(evidenceBlockTemplateConstant, evidenceLabels.ZeroDayPatterns, enrichmentArtifacts.ZeroDayPatterns))

	builder.WriteString(catalog.Synthesis.RequirementsHeading)
	builder.WriteString(promptSectionSeparatorConstant)
	for sectionIndex, section := range catalog.Synthesis.Requirements {
		builder.WriteString(fmt.Sprintf(requirementTitleTemplateConstant, sectionIndex+1, section.Title))
		for _, item := range section.Items {
			builder.WriteString(fmt.Sprintf(requirementItemTemplateConstant, item))
		}
		builder.WriteString("\n")
	}

	focusLines := catalog.focusLines(focus)
	if len(focusLines) > 0 {
		builder.WriteString(catalog.Synthesis.FocusHeading)
		builder.WriteString("\n")
		for _, focusLine := range focusLines {
			builder.WriteString(fmt.Sprintf(focusItemTemplateConstant, focusLine))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(catalog.Synthesis.OutputFormat)
	return builder.String()
}

func (catalog PromptCatalog) focusLines(focus Focus) []string {
	focusLines := []string{}
	if focus.ZeroDay {
		focusLines = append(focusLines, catalog.Synthesis.Focus.ZeroDay)
	}
	if focus.SupplyChain {
		focusLines = append(focusLines, catalog.Synthesis.Focus.SupplyChain)
	}
	standards := make([]string, 0, len(focus.ComplianceStandards))
	for _, standard := range focus.ComplianceStandards {
		trimmedStandard := strings.TrimSpace(standard)
		if len(trimmedStandard) > 0 {
			standards = append(standards, strings.ToUpper(trimmedStandard))
		}
	}
	if len(standards) > 0 {
		focusLines = append(focusLines, fmt.Sprintf(catalog.Synthesis.Focus.Compliance, strings.Join(standards, complianceSeparatorConstant)))
	}
	return focusLines
}

func (catalog PromptCatalog) threatIntelligencePrompt(technologies []string) string {
	technologyList := strings.Join(technologies, technologySeparatorConstant)
	if len(technologyList) == 0 {
		technologyList = catalog.Intelligence.DefaultTechnologies
	}
	return fmt.Sprintf(catalog.Intelligence.ThreatLandscape, technologyList)
}
