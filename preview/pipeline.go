package preview

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Renderer is one conversion strategy. Render must report failures in the
// Result rather than panic, though the pipeline recovers if it does.
type Renderer interface {
	Strategy() Strategy
	Render(ctx context.Context, src Source) Result
}

// Pipeline tries strategies in order until one produces a preview
type Pipeline struct {
	renderers map[Strategy]Renderer
	order     []Strategy
	logger    *slog.Logger
}

// NewPipeline registers renderers; their registration order is the default order
func NewPipeline(logger *slog.Logger, renderers ...Renderer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{renderers: make(map[Strategy]Renderer), logger: logger}
	for _, r := range renderers {
		if r == nil {
			continue
		}
		if _, dup := p.renderers[r.Strategy()]; !dup {
			p.order = append(p.order, r.Strategy())
		}
		p.renderers[r.Strategy()] = r
	}
	return p
}

// Order returns the default strategy order
func (p *Pipeline) Order() []Strategy {
	return append([]Strategy(nil), p.order...)
}

// Convert runs the default order
func (p *Pipeline) Convert(ctx context.Context, src Source) Result {
	return p.ConvertUsing(ctx, src, p.order...)
}

// ConvertUsing runs the given ordered subset of strategies. Strategies run
// strictly one after another; each has released its resources before the next
// starts. When all fail the last failure is returned.
func (p *Pipeline) ConvertUsing(ctx context.Context, src Source, order ...Strategy) Result {
	start := time.Now()
	last := failure(StrategySynthetic, fmt.Errorf("%w: no strategies configured", ErrExhausted))

	for i, strategy := range order {
		renderer, ok := p.renderers[strategy]
		if !ok {
			last = failure(strategy, fmt.Errorf("%w: %s strategy not available", ErrLoad, strategy))
			p.logger.Warn("Preview strategy not registered", "strategy", strategy)
			continue
		}

		attemptStart := time.Now()
		result := p.attempt(ctx, renderer, src)
		result.Strategy = strategy
		result.Elapsed = time.Since(attemptStart)

		switch {
		case result.Passthrough:
			p.logger.Info("Preview passthrough", "name", src.DisplayName, "strategy", strategy,
				"attempt", i+1, "elapsed", result.Elapsed)
			return result
		case !result.Failed() && result.HasArtifact():
			p.logger.Info("Preview generated", "name", src.DisplayName, "strategy", strategy,
				"attempt", i+1, "artifact", result.Artifact.Name, "bytes", len(result.Artifact.Data),
				"elapsed", result.Elapsed)
			return result
		case !result.Failed():
			result = failure(strategy, fmt.Errorf("%w: %s strategy returned an empty artifact", ErrEncode, strategy))
			result.Elapsed = time.Since(attemptStart)
		}

		p.logger.Warn("Preview strategy failed", "name", src.DisplayName, "strategy", strategy,
			"attempt", i+1, "error", result.ErrorMessage, "elapsed", result.Elapsed)
		last = result
	}

	p.logger.Error("All preview strategies failed", "name", src.DisplayName,
		"strategies", len(order), "error", last.ErrorMessage, "elapsed", time.Since(start))
	return last
}

// attempt shields the pipeline from a panicking strategy
func (p *Pipeline) attempt(ctx context.Context, renderer Renderer, src Source) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic recovered in preview strategy", "strategy", renderer.Strategy(),
				"name", src.DisplayName, "panic", r, "stack", string(debug.Stack()))
			result = failure(renderer.Strategy(), fmt.Errorf("%s strategy panicked: %v", renderer.Strategy(), r))
		}
	}()
	return renderer.Render(ctx, src)
}
