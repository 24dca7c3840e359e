package audit_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	dependencyPromptPrefixConstant    = "List all dependencies"
	codePatternPromptPrefixConstant   = "Scan for vulnerable code patterns"
	configurationPromptPrefixConstant = "Check for security misconfigurations"
	knownVulnerabilityPrefixConstant  = "Check these dependencies against"
	zeroDayPromptPrefixConstant       = "Analyze these code patterns"
	synthesisPromptPrefixConstant     = "Perform a comprehensive security audit"
	threatPromptPrefixConstant        = "Based on the current threat landscape"
)

var errScriptedBackendFailure = errors.New("backend unavailable")

type scriptedReply struct {
	response string
	err      error
}

// scriptedBackend answers prompts by prefix and records every prompt it receives.
type scriptedBackend struct {
	mutex   sync.Mutex
	replies map[string]scriptedReply
	prompts []string
}

func newScriptedBackend(replies map[string]scriptedReply) *scriptedBackend {
	return &scriptedBackend{replies: replies}
}

func (backend *scriptedBackend) Generate(_ context.Context, prompt string, _ string) (string, error) {
	backend.mutex.Lock()
	backend.prompts = append(backend.prompts, prompt)
	backend.mutex.Unlock()

	for prefix, reply := range backend.replies {
		if strings.HasPrefix(prompt, prefix) {
			return reply.response, reply.err
		}
	}
	return "", errScriptedBackendFailure
}

func (backend *scriptedBackend) receivedPrompt(prefix string) bool {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	for _, prompt := range backend.prompts {
		if strings.HasPrefix(prompt, prefix) {
			return true
		}
	}
	return false
}

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func defaultScanReplies(synthesisResponse string) map[string]scriptedReply {
	return map[string]scriptedReply{
		dependencyPromptPrefixConstant:    {response: "flask 0.12.2\nrequests 2.19.0"},
		codePatternPromptPrefixConstant:   {response: "app.py: cursor.execute(\"SELECT * FROM users WHERE id=\" + user_id)"},
		configurationPromptPrefixConstant: {response: "DEBUG=True in settings.py"},
		knownVulnerabilityPrefixConstant:  {response: "CVE-2018-1000656 affects flask 0.12.2"},
		zeroDayPromptPrefixConstant:       {response: "no novel patterns"},
		synthesisPromptPrefixConstant:     {response: synthesisResponse},
		threatPromptPrefixConstant:        {response: "Ransomware groups are exploiting outdated Flask deployments."},
	}
}

const criticalAuditResponseConstant = "```json\n" + `{
  "scan_timestamp": "2026-10-18T09:00:00Z",
  "risk_score": 82,
  "risk_level": "Critical",
  "vulnerabilities": [
    {
      "id": "CVE-2018-1000656",
      "vulnerability_type": {"CVE": "CVE-2018-1000656"},
      "severity": {"base": 9.2, "temporal": 9.0, "environmental": 9.1, "overall": 9.2},
      "cvss_score": 9.2,
      "description": "Denial of service via crafted JSON",
      "affected_component": "flask",
      "affected_versions": ["<0.12.3"],
      "fixed_versions": ["0.12.3"],
      "exploit_available": true,
      "exploit_complexity": "Low",
      "remediation": "Upgrade flask",
      "references": ["https://nvd.nist.gov/vuln/detail/CVE-2018-1000656"]
    }
  ],
  "dependency_audit": {
    "total_dependencies": 2,
    "vulnerable_dependencies": [
      {"package": "flask", "current_version": "0.12.2", "vulnerabilities": ["CVE-2018-1000656"], "safe_versions": ["0.12.3"], "severity": "High", "update_urgency": "Immediate"}
    ]
  },
  "executive_summary": "One critical dependency vulnerability."
}` + "\n```"
