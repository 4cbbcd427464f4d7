package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexatlas/lexatlas/common/trace"
	"github.com/lexatlas/lexatlas/internal/llm"
)

// Clusterer groups binary feature rows and returns one label per row, with
// -1 marking noise.
type Clusterer interface {
	Cluster(features [][]float64, minClusterSize, minSamples int, metric string) ([]int, error)
}

// Recorder persists an audit record of one tool execution.
type Recorder interface {
	RecordExecution(ctx context.Context, turnID, sessionID, server, tool, status, errMsg string) error
}

// ClusterDefaults are applied when a cluster call omits parameters.
type ClusterDefaults struct {
	MinClusterSize int
	MinSamples     int
	Metric         string
}

// Call is one tool invocation with its fully enriched parameters.
type Call struct {
	ID        ID
	Params    map[string]any
	SessionID string
}

// Executor runs registered tools. LLM, Clusterer, and Audit are optional;
// tools that need a missing capability report the gap in their result.
type Executor struct {
	LLM       llm.Provider
	Clusterer Clusterer
	Audit     Recorder
	Defaults  ClusterDefaults
}

// Execute dispatches a call to its handler. A panicking handler yields an
// error result instead of taking the conversation down. Every execution is
// written to the audit trail when a Recorder is configured.
func (e *Executor) Execute(ctx context.Context, call Call) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("tool handler panicked",
				zap.String("server", call.ID.Server),
				zap.String("tool", call.ID.Tool),
				zap.Any("panic", r))
			result = errResult("internal error running %s: %v", call.ID, r)
		}
		e.record(ctx, call, result)
	}()

	if _, ok := Lookup(call.ID.Server, call.ID.Tool); !ok {
		return errResult("Unknown tool: %s in server %s", call.ID.Tool, call.ID.Server)
	}
	params := call.Params
	if params == nil {
		params = map[string]any{}
	}

	switch call.ID {
	case ProposeWordlist:
		return e.proposeWordlist(ctx, params)
	case RefineWordlist:
		return e.refineWordlist(ctx, params)
	case CollectRows:
		return e.collectRows(ctx, params)
	case ReadCSV:
		return readCSVData(params)
	case ValidateSchema:
		return validateSchemaData(params)
	case Normalize:
		return normalizeData(params)
	case ToBinaryMatrix:
		return toBinaryMatrix(params)
	case Cluster:
		return e.clusterRows(params)
	case ToMapLayer:
		return toMapLayer(params)
	case ExportCSV:
		return exportCSVData(params)
	}
	return errResult("Unknown tool: %s in server %s", call.ID.Tool, call.ID.Server)
}

func (e *Executor) record(ctx context.Context, call Call, result Result) {
	if e.Audit == nil {
		return
	}
	status := "ok"
	errMsg := result.Err()
	if errMsg != "" {
		status = "error"
	}
	if err := e.Audit.RecordExecution(ctx, trace.FromContext(ctx), call.SessionID,
		call.ID.Server, call.ID.Tool, status, errMsg); err != nil {
		zap.L().Warn("audit record failed", zap.Error(err))
	}
}
