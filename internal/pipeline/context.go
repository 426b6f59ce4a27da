package pipeline

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	phaseKey    contextKey = "phase"
	strategyKey contextKey = "strategy"
)

// Pipeline phase names used in logs and wrapped errors.
const (
	PhaseScan    = "scan"
	PhaseGroup   = "group"
	PhaseCompare = "compare"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(phaseKey).(string)
	return v, ok && v != ""
}

// WithStrategy annotates context with the active match strategy name.
func WithStrategy(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, strategyKey, name)
}

// StrategyFromContext returns the strategy name if present.
func StrategyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(strategyKey).(string)
	return v, ok && v != ""
}
