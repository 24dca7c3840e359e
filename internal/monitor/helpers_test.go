package monitor_test

import (
	"github.com/temirov/secaudit/internal/gate"
	"github.com/temirov/secaudit/internal/risk"
)

func gateDecisionFor(audit risk.Audit) gate.Decision {
	return gate.Evaluate(audit, gate.ModeMonitoring)
}
