package dag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/intentrouter-go/dag/emit"
)

// seenEdgeKey is the (destination, label) pair the traversal loop uses to
// suppress duplicate enqueues of the same edge.
type seenEdgeKey struct {
	dst, label string
}

// RunDAG walks g from its entrypoints, executing nodes in BFS order
// against a single input and a shared Context, until a node terminates,
// the worklist drains, or a configured limit trips.
//
// It returns the ExecutionResult of the last node executed (useful even
// on a limit error, so callers can inspect partial progress) and the
// metrics aggregated across every step.
func RunDAG(ctx context.Context, g *IntentDAG, rc *Context, input string, options ...Option) (ExecutionResult, map[string]any, error) {
	opts, err := resolveOptions(options...)
	if err != nil {
		return ExecutionResult{}, nil, err
	}
	if opts.Resolver == nil {
		return ExecutionResult{}, nil, &TraversalError{Cause: errNoResolver}
	}
	if len(g.entrypoints) == 0 {
		return ExecutionResult{}, nil, ErrNoEntrypoints
	}

	if opts.LLMService != nil {
		rc.Set("llm_service", opts.LLMService, "engine")
	}
	if opts.CostTracker != nil {
		rc.Set("cost_tracker", opts.CostTracker, "engine")
	}

	runID := uuid.NewString()
	aggregated := make(map[string]any)
	var lastResult ExecutionResult

	queue := append([]string{}, g.entrypoints...)
	seenEdges := make(map[seenEdgeKey]bool)
	pendingPatches := make(map[string]*ContextPatch)
	memoCache := make(map[string]ExecutionResult)

	steps := 0
	opts.Emitter.Emit(emit.Event{RunID: runID, Msg: "traversal_started", Meta: map[string]any{"entrypoints": g.entrypoints}})

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		steps++

		if opts.MaxSteps > 0 && steps > opts.MaxSteps {
			if opts.Metrics != nil {
				opts.Metrics.IncrementTraversalLimit(runID, "max_steps")
			}
			return lastResult, aggregated, &TraversalLimitError{Kind: "max_steps", NodeID: nodeID, Step: steps, Limit: opts.MaxSteps}
		}

		if patch, ok := pendingPatches[nodeID]; ok {
			if err := rc.ApplyPatch(patch); err != nil {
				if opts.Metrics != nil {
					opts.Metrics.IncrementMergeConflicts(runID, "patch_apply")
				}
				return lastResult, aggregated, err
			}
			delete(pendingPatches, nodeID)
		}

		node, ok := g.Node(nodeID)
		if !ok {
			return lastResult, aggregated, &TraversalError{NodeID: nodeID, Step: steps, Cause: errUnknownNode}
		}

		var memoKey string
		var cached ExecutionResult
		cacheHit := false
		if opts.Memoize {
			memoKey = memoizationKey(nodeID, rc.Keys(), input)
			if c, ok := memoCache[memoKey]; ok {
				cached = c
				cacheHit = true
				if opts.Metrics != nil {
					opts.Metrics.IncrementMemoHits(runID, nodeID)
				}
			}
		}

		var result ExecutionResult
		errorRouted := false
		if cacheHit {
			result = cached
		} else {
			execCtx, cancel := context.WithTimeout(ctx, nodeTimeout(node, opts.DefaultNodeTimeout))
			start := time.Now()
			opts.Emitter.Emit(emit.Event{RunID: runID, Step: steps, NodeID: nodeID, Msg: "step_started"})

			impl, resolveErr := opts.Resolver(node)
			if resolveErr != nil {
				cancel()
				return lastResult, aggregated, &TraversalError{NodeID: nodeID, Step: steps, Cause: resolveErr}
			}

			res, execErr := impl.Execute(execCtx, input, rc)
			cancel()
			latency := time.Since(start)

			if execErr != nil {
				if opts.Metrics != nil {
					opts.Metrics.RecordStepLatency(runID, nodeID, latency, "error")
				}
				opts.Emitter.Emit(emit.Event{RunID: runID, Step: steps, NodeID: nodeID, Msg: "step_finished", Meta: map[string]any{"error": execErr.Error(), "duration_ms": latency.Milliseconds()}})

				dsts := g.Next(nodeID, ErrorEdgeLabel)
				if len(dsts) == 0 {
					return lastResult, aggregated, &TraversalError{NodeID: nodeID, Step: steps, Cause: execErr}
				}

				errPatch := NewPatch(nodeID)
				errPatch.Data["last_error"] = execErr.Error()
				errPatch.Data["error_node"] = nodeID
				errPatch.Data["error_type"] = errorTypeName(execErr)
				errPatch.Data["error_timestamp"] = time.Now().UTC()

				opts.Emitter.Emit(emit.Event{RunID: runID, Step: steps, NodeID: nodeID, Msg: "error_routed", Meta: map[string]any{"edge": ErrorEdgeLabel}})

				errorRouted = true
				result = ExecutionResult{
					NextEdges:    []string{ErrorEdgeLabel},
					ContextPatch: errPatch.Data,
				}
			} else {
				result = res
				if opts.Metrics != nil {
					opts.Metrics.RecordStepLatency(runID, nodeID, latency, "success")
				}
				opts.Emitter.Emit(emit.Event{RunID: runID, Step: steps, NodeID: nodeID, Msg: "step_finished", Meta: map[string]any{"duration_ms": latency.Milliseconds()}})
			}

			if opts.Memoize && execErr == nil {
				memoCache[memoKey] = result
			}
		}

		aggregateMetrics(aggregated, result.Metrics)

		if len(result.ContextPatch) > 0 {
			patch := NewPatch(nodeID)
			patch.Data = result.ContextPatch
			if err := rc.ApplyPatch(patch); err != nil {
				return lastResult, aggregated, err
			}
		}

		lastResult = result

		if result.Terminate {
			opts.Emitter.Emit(emit.Event{RunID: runID, Step: steps, NodeID: nodeID, Msg: "traversal_finished", Meta: map[string]any{"reason": "terminate"}})
			return lastResult, aggregated, nil
		}

		labels := result.NextEdges
		if len(labels) == 0 {
			labels = []string{UnlabeledEdge}
		}

		fanout := 0
	fanoutLoop:
		for _, label := range labels {
			for _, dst := range g.Next(nodeID, label) {
				key := seenEdgeKey{dst: dst, label: label}
				if seenEdges[key] {
					continue
				}
				seenEdges[key] = true
				queue = append(queue, dst)
				fanout++

				patchCopy := NewPatch(nodeID)
				for k, v := range result.ContextPatch {
					patchCopy.Data[k] = v
				}
				if existing, ok := pendingPatches[dst]; ok {
					pendingPatches[dst] = MergeDictPatches(existing, patchCopy)
				} else {
					pendingPatches[dst] = patchCopy
				}

				if fanout > opts.MaxFanoutPerNode {
					if opts.Metrics != nil {
						opts.Metrics.IncrementTraversalLimit(runID, "max_fanout")
					}
					return lastResult, aggregated, &TraversalLimitError{Kind: "max_fanout", NodeID: nodeID, Step: steps, Limit: opts.MaxFanoutPerNode}
				}

				// Error routing follows only the first destination of the
				// error edge, per the error-edge routing contract.
				if errorRouted {
					break fanoutLoop
				}
			}
		}
		if opts.Metrics != nil && fanout > 0 {
			opts.Metrics.IncrementFanout(runID, nodeID, fanout)
		}
	}

	opts.Emitter.Emit(emit.Event{RunID: runID, Msg: "traversal_finished", Meta: map[string]any{"reason": "queue_drained", "steps": steps}})
	return lastResult, aggregated, nil
}

// aggregateMetrics folds a node's metrics into the running total:
// numeric values sum, everything else is last-write-wins.
func aggregateMetrics(aggregated, delta map[string]any) {
	for k, v := range delta {
		switch n := v.(type) {
		case int:
			aggregated[k] = toFloat(aggregated[k]) + float64(n)
		case int64:
			aggregated[k] = toFloat(aggregated[k]) + float64(n)
		case float64:
			aggregated[k] = toFloat(aggregated[k]) + n
		case float32:
			aggregated[k] = toFloat(aggregated[k]) + float64(n)
		default:
			aggregated[k] = v
		}
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

// memoizationKey hashes the node id, the sorted set of context keys
// (not their values — an intentionally conservative cache that assumes
// a node may read anything in scope), and the input string.
func memoizationKey(nodeID string, keys []string, input string) string {
	sorted := append([]string{}, keys...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(nodeID))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(sorted, ",")))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

func nodeTimeout(node GraphNode, fallback time.Duration) time.Duration {
	if raw, ok := node.Config["timeout_ms"]; ok {
		if ms, ok := raw.(int); ok && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func errorTypeName(err error) string {
	switch err.(type) {
	case *ClassificationError:
		return "ClassificationError"
	case *ExtractionError:
		return "ExtractionError"
	case *ActionExecutionError:
		return "ActionExecutionError"
	case *TypeCoercionError:
		return "TypeCoercionError"
	default:
		return "NodeError"
	}
}
