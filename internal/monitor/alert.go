package monitor

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/temirov/secaudit/internal/gate"
)

const (
	alertHeadlineTemplateConstant = "[%s] cycle %d: %s risk detected (score %s/100)\n"
	alertFindingTemplateConstant  = "  %s %s - %s\n"
	alertNewMarkerConstant        = "NEW"
	alertKnownMarkerConstant      = "   "
	alertTimestampLayoutConstant  = time.RFC3339
)

// Alert is emitted when a monitoring decision crosses the alert threshold.
type Alert struct {
	Cycle         int
	Timestamp     time.Time
	Decision      gate.Decision
	NewFindingIDs []string
}

// AlertSink delivers alerts.
type AlertSink interface {
	Alert(alert Alert) error
}

// ConsoleAlertSink prints alerts in color to a terminal writer.
type ConsoleAlertSink struct {
	writer    io.Writer
	headline  *color.Color
	newMarker *color.Color
	mutex     sync.Mutex
}

// NewConsoleAlertSink constructs a sink writing to writer.
func NewConsoleAlertSink(writer io.Writer) *ConsoleAlertSink {
	return &ConsoleAlertSink{
		writer:    writer,
		headline:  color.New(color.FgHiRed, color.Bold),
		newMarker: color.New(color.FgHiYellow),
	}
}

// Alert writes a headline followed by one line per alerted finding; new findings are marked.
func (sink *ConsoleAlertSink) Alert(alert Alert) error {
	if sink == nil || sink.writer == nil {
		return nil
	}
	sink.mutex.Lock()
	defer sink.mutex.Unlock()

	if _, writeError := sink.headline.Fprintf(
		sink.writer,
		alertHeadlineTemplateConstant,
		alert.Timestamp.UTC().Format(alertTimestampLayoutConstant),
		alert.Cycle,
		strings.ToUpper(string(alert.Decision.Level)),
		strconv.FormatFloat(alert.Decision.Score, 'f', -1, 64),
	); writeError != nil {
		return writeError
	}

	newFindings := make(map[string]struct{}, len(alert.NewFindingIDs))
	for _, identifier := range alert.NewFindingIDs {
		newFindings[identifier] = struct{}{}
	}

	for _, finding := range alert.Decision.AlertFindings {
		marker := alertKnownMarkerConstant
		if _, isNew := newFindings[finding.ID]; isNew {
			marker = sink.newMarker.Sprint(alertNewMarkerConstant)
		}
		if _, writeError := fmt.Fprintf(sink.writer, alertFindingTemplateConstant, marker, finding.ID, finding.Description); writeError != nil {
			return writeError
		}
	}
	return nil
}
