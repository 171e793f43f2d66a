package celx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
)

// Executor compiles each distinct expression text once and caches the
// resulting cel.Program, per spec §9's "parse-once / evaluate-many
// compilation cache keyed by expression text".
type Executor struct {
	env   *cel.Env
	log   *slog.Logger
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewExecutor builds an Executor over env. log may be nil, in which case
// evaluation failures are discarded silently rather than logged.
func NewExecutor(env *cel.Env, log *slog.Logger) *Executor {
	return &Executor{
		env:   env,
		log:   log,
		cache: make(map[string]cel.Program),
	}
}

func (e *Executor) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[expr]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrCompile, expr, err)
	}
	e.cache[expr] = prg
	return prg, nil
}

// Evaluate compiles (if needed) and runs expr against vars, returning the
// raw result value. Compile failures are returned as an error; runtime
// evaluation failures are also returned as an error, leaving the decision
// of how to degrade (guard=false, extractor=null) to the caller, per the
// distinct helpers below.
func (e *Executor) Evaluate(expr string, vars Vars) (any, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.Eval(vars.toActivation())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrEvaluate, expr, err)
	}
	return out.Value(), nil
}

// EvaluateGuard runs expr as a boolean guard. Per spec §4.2 failure
// semantics, "match-guards that error evaluate false".
func (e *Executor) EvaluateGuard(expr string, vars Vars) bool {
	v, err := e.Evaluate(expr, vars)
	if err != nil {
		e.logError("guard", expr, err)
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// EvaluateExtractor runs expr as a state extractor. Per spec §4.2 failure
// semantics, "extractors that error yield null", represented here as
// (nil, false).
func (e *Executor) EvaluateExtractor(expr string, vars Vars) (any, bool) {
	v, err := e.Evaluate(expr, vars)
	if err != nil {
		e.logError("extractor", expr, err)
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	return v, true
}

func (e *Executor) logError(kind, expr string, err error) {
	if e.log == nil {
		return
	}
	e.log.Warn("cel expression failed", "kind", kind, "expr", expr, "error", err)
}
