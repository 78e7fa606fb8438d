package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// Security: complexity limits on lock expressions.
const (
	maxExpressionLength = 1000
	maxASTNodes         = 100
)

// InvariantResult is the outcome of one lock expression.
type InvariantResult struct {
	Expression string
	Passed     bool
	Message    string
}

// InvariantEvaluator evaluates lock invariant expressions against a design.
// It caches compiled expressions to avoid redundant compilation overhead.
type InvariantEvaluator struct {
	programCache map[string]*vm.Program
	cacheMu      sync.RWMutex
}

// NewInvariantEvaluator creates an evaluator with an empty cache.
func NewInvariantEvaluator() *InvariantEvaluator {
	return &InvariantEvaluator{
		programCache: make(map[string]*vm.Program),
	}
}

// Evaluate runs every expression against the geometry.
//
// The environment exposes:
//   - rooms: list of {id, name, type, level, area}; level is -1 when unknown
//   - levels: number of levels in the geometry
//   - levelCount: the lock's level count
//   - totalArea: sum of room areas
//   - countNamed(name): rooms matching name by substring
//   - areaNamed(name): total area of those rooms
//
// A false result, an evaluation error, or a non-boolean result fails the
// expression.
func (e *InvariantEvaluator) Evaluate(geometry *entities.Geometry, lock *entities.SpaceProgramLock, expressions []string) []InvariantResult {
	if len(expressions) == 0 {
		return nil
	}

	env := invariantEnv(geometry, lock)
	options := []expr.Option{
		expr.Env(env),
		expr.AsBool(),
		expr.MaxNodes(maxASTNodes),
	}

	results := make([]InvariantResult, 0, len(expressions))
	for _, expression := range expressions {
		if len(expression) > maxExpressionLength {
			results = append(results, InvariantResult{
				Expression: expression,
				Message:    fmt.Sprintf("expression too long (max %d chars): %d chars", maxExpressionLength, len(expression)),
			})
			continue
		}

		program, err := e.getOrCompile(expression, options)
		if err != nil {
			results = append(results, InvariantResult{
				Expression: expression,
				Message:    fmt.Sprintf("compilation failed: %v", err),
			})
			continue
		}

		output, err := expr.Run(program, env)
		if err != nil {
			results = append(results, InvariantResult{
				Expression: expression,
				Message:    fmt.Sprintf("evaluation failed: %v", err),
			})
			continue
		}

		passed, ok := output.(bool)
		switch {
		case !ok:
			results = append(results, InvariantResult{
				Expression: expression,
				Message:    fmt.Sprintf("expression did not return boolean: %v", output),
			})
		case !passed:
			results = append(results, InvariantResult{
				Expression: expression,
				Message:    fmt.Sprintf("invariant evaluated to false: %s", expression),
			})
		default:
			results = append(results, InvariantResult{Expression: expression, Passed: true})
		}
	}
	return results
}

// getOrCompile retrieves a cached program or compiles and caches a new one.
// The env shape is fixed, so a program compiled for one design runs
// against any other.
func (e *InvariantEvaluator) getOrCompile(expression string, options []expr.Option) (*vm.Program, error) {
	e.cacheMu.RLock()
	program, found := e.programCache[expression]
	e.cacheMu.RUnlock()
	if found {
		return program, nil
	}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if program, found := e.programCache[expression]; found {
		return program, nil
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	e.programCache[expression] = program
	return program, nil
}

func invariantEnv(geometry *entities.Geometry, lock *entities.SpaceProgramLock) map[string]any {
	rooms := make([]any, 0, len(geometry.Rooms))
	for _, r := range geometry.Rooms {
		level := -1
		if l, ok := r.LevelIndex(); ok {
			level = l
		}
		rooms = append(rooms, map[string]any{
			"id":    r.ID,
			"name":  r.Name,
			"type":  strings.ToLower(r.Type),
			"level": level,
			"area":  r.EffectiveArea(),
		})
	}
	return map[string]any{
		"rooms":      rooms,
		"levels":     geometry.FloorCount(),
		"levelCount": lock.LevelCount,
		"totalArea":  geometry.TotalArea(),
		"countNamed": func(name string) int {
			n := 0
			for _, r := range geometry.Rooms {
				if r.Matches(name) {
					n++
				}
			}
			return n
		},
		"areaNamed": func(name string) float64 {
			var area float64
			for _, r := range geometry.Rooms {
				if r.Matches(name) {
					area += r.EffectiveArea()
				}
			}
			return area
		},
	}
}
