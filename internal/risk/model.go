package risk

import "time"

// Audit is the structured result of one audit cycle.
type Audit struct {
	ScanTimestamp       time.Time           `json:"scan_timestamp"`
	RiskScore           float64             `json:"risk_score"`
	RiskLevel           Level               `json:"risk_level"`
	Vulnerabilities     []Finding           `json:"vulnerabilities"`
	ZeroDayRisks        []ZeroDayRisk       `json:"zero_day_risks"`
	DependencyAudit     DependencyAudit     `json:"dependency_audit"`
	CodeVulnerabilities []CodeVulnerability `json:"code_vulnerabilities"`
	SecretsScan         SecretsScan         `json:"secrets_scan"`
	Compliance          ComplianceReport    `json:"compliance"`
	SupplyChain         SupplyChainAnalysis `json:"supply_chain"`
	Recommendations     []Recommendation    `json:"recommendations"`
	ExecutiveSummary    string              `json:"executive_summary"`
}

// Finding describes a single vulnerability.
type Finding struct {
	ID                string        `json:"id"`
	Type              FindingType   `json:"vulnerability_type"`
	Severity          SeverityScore `json:"severity"`
	CVSSScore         *float64      `json:"cvss_score"`
	Description       string        `json:"description"`
	AffectedComponent string        `json:"affected_component"`
	AffectedVersions  []string      `json:"affected_versions"`
	FixedVersions     []string      `json:"fixed_versions"`
	ExploitAvailable  bool          `json:"exploit_available"`
	ExploitComplexity string        `json:"exploit_complexity"`
	Remediation       string        `json:"remediation"`
	References        []string      `json:"references"`
	DiscoveredDate    *time.Time    `json:"discovered_date"`
	PublicDate        *time.Time    `json:"public_date"`
}

// SeverityScore carries CVSS-style component scores on a 0-10 scale.
type SeverityScore struct {
	Base          float64 `json:"base"`
	Temporal      float64 `json:"temporal"`
	Environmental float64 `json:"environmental"`
	Overall       float64 `json:"overall"`
}

// ZeroDayRisk describes a pattern that resembles known vulnerabilities but is undocumented.
type ZeroDayRisk struct {
	Pattern             string  `json:"pattern"`
	SimilarityToKnown   float64 `json:"similarity_to_known"`
	PotentialImpact     string  `json:"potential_impact"`
	Likelihood          float64 `json:"likelihood"`
	Description         string  `json:"description"`
	Mitigation          string  `json:"mitigation"`
	DetectionConfidence float64 `json:"detection_confidence"`
}

// DependencyAudit summarizes dependency health.
type DependencyAudit struct {
	TotalDependencies      int                    `json:"total_dependencies"`
	VulnerableDependencies []VulnerableDependency `json:"vulnerable_dependencies"`
	OutdatedDependencies   []OutdatedDependency   `json:"outdated_dependencies"`
	LicenseIssues          []LicenseIssue         `json:"license_issues"`
	UnmaintainedPackages   []UnmaintainedPackage  `json:"unmaintained_packages"`
	TyposquattingRisks     []TyposquattingRisk    `json:"typosquatting_risks"`
}

// Empty reports whether the dependency audit carries no data.
func (dependencyAudit DependencyAudit) Empty() bool {
	return dependencyAudit.TotalDependencies == 0 &&
		len(dependencyAudit.VulnerableDependencies) == 0 &&
		len(dependencyAudit.OutdatedDependencies) == 0 &&
		len(dependencyAudit.LicenseIssues) == 0 &&
		len(dependencyAudit.UnmaintainedPackages) == 0 &&
		len(dependencyAudit.TyposquattingRisks) == 0
}

// VulnerableDependency lists a dependency with known vulnerabilities and its safe versions.
type VulnerableDependency struct {
	Package         string   `json:"package"`
	CurrentVersion  string   `json:"current_version"`
	Vulnerabilities []string `json:"vulnerabilities"`
	SafeVersions    []string `json:"safe_versions"`
	Severity        string   `json:"severity"`
	UpdateUrgency   string   `json:"update_urgency"`
}

// OutdatedDependency describes a dependency that lags behind its latest release.
type OutdatedDependency struct {
	Package         string `json:"package"`
	CurrentVersion  string `json:"current_version"`
	LatestVersion   string `json:"latest_version"`
	VersionsBehind  int    `json:"versions_behind"`
	SecurityUpdates int    `json:"security_updates"`
	BreakingChanges bool   `json:"breaking_changes"`
}

// LicenseIssue records a license incompatibility.
type LicenseIssue struct {
	Package       string   `json:"package"`
	License       string   `json:"license"`
	Issue         string   `json:"issue"`
	Compatibility []string `json:"compatibility"`
}

// UnmaintainedPackage records a dependency without recent maintenance.
type UnmaintainedPackage struct {
	Package         string    `json:"package"`
	LastUpdate      time.Time `json:"last_update"`
	DaysSinceUpdate int64     `json:"days_since_update"`
	OpenIssues      int       `json:"open_issues"`
	Alternatives    []string  `json:"alternatives"`
}

// TyposquattingRisk flags a package name that imitates a popular package.
type TyposquattingRisk struct {
	Package    string   `json:"package"`
	SimilarTo  string   `json:"similar_to"`
	RiskScore  float64  `json:"risk_score"`
	Indicators []string `json:"indicators"`
}

// CodeVulnerability points at a vulnerable code location.
type CodeVulnerability struct {
	VulnerabilityClass string  `json:"vulnerability_class"`
	File               string  `json:"file"`
	LineRange          [2]int  `json:"line_range"`
	Severity           string  `json:"severity"`
	Description        string  `json:"description"`
	CodeSnippet        string  `json:"code_snippet"`
	Fix                string  `json:"fix"`
	CWEID              *string `json:"cwe_id"`
	OWASPCategory      *string `json:"owasp_category"`
}

// SecretsScan summarizes exposed credentials.
type SecretsScan struct {
	SecretsFound   int             `json:"secrets_found"`
	Secrets        []ExposedSecret `json:"secrets"`
	FalsePositives int             `json:"false_positives"`
}

// ExposedSecret describes one detected secret with a masked value.
type ExposedSecret struct {
	SecretType  string  `json:"secret_type"`
	File        string  `json:"file"`
	Line        int     `json:"line"`
	Entropy     float64 `json:"entropy"`
	Confidence  float64 `json:"confidence"`
	MaskedValue string  `json:"masked_value"`
	Remediation string  `json:"remediation"`
}

// ComplianceReport aggregates compliance posture across standards.
type ComplianceReport struct {
	Standards       []ComplianceStandard  `json:"standards"`
	Violations      []ComplianceViolation `json:"violations"`
	ComplianceScore float64               `json:"compliance_score"`
}

// ComplianceStandard records compliance with one standard such as OWASP ASVS or SOC2.
type ComplianceStandard struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ComplianceLevel float64  `json:"compliance_level"`
	MissingControls []string `json:"missing_controls"`
}

// ComplianceViolation records one failed requirement.
type ComplianceViolation struct {
	Standard    string `json:"standard"`
	Requirement string `json:"requirement"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Remediation string `json:"remediation"`
}

// SupplyChainAnalysis summarizes supply-chain exposure.
type SupplyChainAnalysis struct {
	RiskScore              float64           `json:"risk_score"`
	DirectDependencies     int               `json:"direct_dependencies"`
	TransitiveDependencies int               `json:"transitive_dependencies"`
	DependencyDepth        int               `json:"dependency_depth"`
	HighRiskPackages       []HighRiskPackage `json:"high_risk_packages"`
	AttackVectors          []AttackVector    `json:"attack_vectors"`
}

// HighRiskPackage names a package with elevated supply-chain risk.
type HighRiskPackage struct {
	Package      string   `json:"package"`
	RiskFactors  []string `json:"risk_factors"`
	Alternatives []string `json:"alternatives"`
}

// AttackVector describes a supply-chain attack path.
type AttackVector struct {
	VectorType  string  `json:"vector_type"`
	Description string  `json:"description"`
	Likelihood  float64 `json:"likelihood"`
	Impact      float64 `json:"impact"`
	Mitigation  string  `json:"mitigation"`
}

// Recommendation is a prioritized remediation suggestion.
type Recommendation struct {
	Priority       string `json:"priority"`
	Category       string `json:"category"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Implementation string `json:"implementation"`
	Effort         string `json:"effort"`
	Impact         string `json:"impact"`
}

// Normalize replaces nil collections with empty ones so encodings never emit null lists.
func (audit *Audit) Normalize() {
	if audit.Vulnerabilities == nil {
		audit.Vulnerabilities = []Finding{}
	}
	for findingIndex := range audit.Vulnerabilities {
		finding := &audit.Vulnerabilities[findingIndex]
		finding.AffectedVersions = emptyIfNil(finding.AffectedVersions)
		finding.FixedVersions = emptyIfNil(finding.FixedVersions)
		finding.References = emptyIfNil(finding.References)
	}
	if audit.ZeroDayRisks == nil {
		audit.ZeroDayRisks = []ZeroDayRisk{}
	}
	if audit.DependencyAudit.VulnerableDependencies == nil {
		audit.DependencyAudit.VulnerableDependencies = []VulnerableDependency{}
	}
	if audit.DependencyAudit.OutdatedDependencies == nil {
		audit.DependencyAudit.OutdatedDependencies = []OutdatedDependency{}
	}
	if audit.DependencyAudit.LicenseIssues == nil {
		audit.DependencyAudit.LicenseIssues = []LicenseIssue{}
	}
	if audit.DependencyAudit.UnmaintainedPackages == nil {
		audit.DependencyAudit.UnmaintainedPackages = []UnmaintainedPackage{}
	}
	if audit.DependencyAudit.TyposquattingRisks == nil {
		audit.DependencyAudit.TyposquattingRisks = []TyposquattingRisk{}
	}
	if audit.CodeVulnerabilities == nil {
		audit.CodeVulnerabilities = []CodeVulnerability{}
	}
	if audit.SecretsScan.Secrets == nil {
		audit.SecretsScan.Secrets = []ExposedSecret{}
	}
	if audit.Compliance.Standards == nil {
		audit.Compliance.Standards = []ComplianceStandard{}
	}
	if audit.Compliance.Violations == nil {
		audit.Compliance.Violations = []ComplianceViolation{}
	}
	if audit.SupplyChain.HighRiskPackages == nil {
		audit.SupplyChain.HighRiskPackages = []HighRiskPackage{}
	}
	if audit.SupplyChain.AttackVectors == nil {
		audit.SupplyChain.AttackVectors = []AttackVector{}
	}
	if audit.Recommendations == nil {
		audit.Recommendations = []Recommendation{}
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
