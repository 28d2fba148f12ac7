package dag

import (
	"time"

	"github.com/dshills/intentrouter-go/dag/emit"
)

// Option is a functional option for configuring a Run call.
//
// Chainable and self-documenting, mirroring the engine configuration
// pattern used throughout this codebase: only specify what deviates from
// the defaults.
//
//	_, metrics, err := dag.RunDAG(ctx, g, rc, input,
//	    dag.WithMaxSteps(200),
//	    dag.WithMaxFanout(8),
//	    dag.WithMemoization(true),
//	)
type Option func(*runConfig) error

// runConfig collects options before RunDAG applies them.
type runConfig struct {
	opts RunOptions
}

// RunOptions holds the resolved configuration for one RunDAG call: the
// defaults, overridden by the Option values passed to RunDAG.
type RunOptions struct {
	MaxSteps           int
	MaxFanoutPerNode   int
	Memoize            bool
	DefaultNodeTimeout time.Duration
	Metrics            *PrometheusMetrics
	CostTracker        *CostTracker
	Resolver           Resolver
	Emitter            emit.Emitter
	LLMService         any
}

// WithMaxSteps bounds the total number of node executions in one
// traversal. Required for any graph containing a cycle; 0 means no
// limit.
//
// Default: 1000.
func WithMaxSteps(n int) Option {
	return func(cfg *runConfig) error {
		cfg.opts.MaxSteps = n
		return nil
	}
}

// WithMaxFanout bounds how many next-node ids a single ExecutionResult
// may enqueue. Protects against a misbehaving classifier broadcasting to
// every label it knows.
//
// Default: 16.
func WithMaxFanout(n int) Option {
	return func(cfg *runConfig) error {
		cfg.opts.MaxFanoutPerNode = n
		return nil
	}
}

// WithMemoization enables the (node_id, sorted context key names, input)
// memo cache, skipping re-execution of a node already run with the same
// input and the same set of context keys during this traversal. Context
// values are not part of the key.
//
// Default: false.
func WithMemoization(enabled bool) Option {
	return func(cfg *runConfig) error {
		cfg.opts.Memoize = enabled
		return nil
	}
}

// WithDefaultNodeTimeout sets the per-node execution deadline applied
// when the node's own Config carries none.
//
// Default: 30s.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *runConfig) error {
		cfg.opts.DefaultNodeTimeout = d
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection across the
// traversal: step latency histogram, fan-out counter, memo-hit counter,
// merge-conflict counter, and traversal-limit counter. RunDAG does not
// update the inflight node gauge.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *runConfig) error {
		cfg.opts.Metrics = metrics
		return nil
	}
}

// WithCostTracker attaches a CostTracker that LLM-backed node
// implementations can record token usage against.
func WithCostTracker(tracker *CostTracker) Option {
	return func(cfg *runConfig) error {
		cfg.opts.CostTracker = tracker
		return nil
	}
}

// WithLLMService injects svc into the run's Context under the key
// "llm_service" before traversal starts, matching the well-known key
// classifier and extractor nodes look for their LLM client under.
func WithLLMService(svc any) Option {
	return func(cfg *runConfig) error {
		cfg.opts.LLMService = svc
		return nil
	}
}

// WithResolver supplies the function mapping each GraphNode to its
// executable NodeImpl. Required — RunDAG returns an error if absent.
func WithResolver(r Resolver) Option {
	return func(cfg *runConfig) error {
		cfg.opts.Resolver = r
		return nil
	}
}

// WithEmitter attaches an event sink notified of traversal lifecycle
// events (traversal started, step started/finished, error routed,
// traversal finished).
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *runConfig) error {
		cfg.opts.Emitter = e
		return nil
	}
}

func resolveOptions(options ...Option) (RunOptions, error) {
	cfg := &runConfig{
		opts: RunOptions{
			MaxSteps:           1000,
			MaxFanoutPerNode:   16,
			DefaultNodeTimeout: 30 * time.Second,
			Emitter:            emit.NullEmitter{},
		},
	}
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return RunOptions{}, err
		}
	}
	return cfg.opts, nil
}
