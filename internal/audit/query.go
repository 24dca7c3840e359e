package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/secaudit/internal/backend"
	"github.com/temirov/secaudit/internal/utils"
)

const (
	queryStartedMessageConstant   = "backend query started"
	queryCompletedMessageConstant = "backend query completed"
	queryFailedMessageConstant    = "backend query failed"
	logFieldQueryConstant         = "query"
	logFieldCycleConstant         = "cycle_id"
	logFieldDurationConstant      = "duration"
	logFieldResponseBytesConstant = "response_bytes"
)

// queryExecutor issues backend queries bounded by a per-call timeout.
type queryExecutor struct {
	inferenceBackend backend.InferenceBackend
	requestTimeout   time.Duration
	clock            Clock
	logger           *zap.Logger
	contextAccessor  utils.CommandContextAccessor
}

func (executor queryExecutor) run(executionContext context.Context, query QueryName, prompt string, promptContext string) (string, error) {
	callContext := executionContext
	if executor.requestTimeout > 0 {
		var cancel context.CancelFunc
		callContext, cancel = context.WithTimeout(executionContext, executor.requestTimeout)
		defer cancel()
	}

	queryFields := []zap.Field{zap.String(logFieldQueryConstant, string(query))}
	if cycleIdentifier, available := executor.contextAccessor.CycleIdentifier(executionContext); available {
		queryFields = append(queryFields, zap.String(logFieldCycleConstant, cycleIdentifier))
	}

	startedAt := executor.clock.Now()
	executor.logger.Debug(queryStartedMessageConstant, queryFields...)

	response, generateError := executor.inferenceBackend.Generate(callContext, prompt, promptContext)
	elapsed := executor.clock.Now().Sub(startedAt)
	if generateError != nil {
		executor.logger.Debug(queryFailedMessageConstant, append(queryFields, zap.Duration(logFieldDurationConstant, elapsed), zap.Error(generateError))...)
		return "", generateError
	}

	executor.logger.Debug(queryCompletedMessageConstant, append(queryFields, zap.Duration(logFieldDurationConstant, elapsed), zap.Int(logFieldResponseBytesConstant, len(response)))...)
	return response, nil
}
