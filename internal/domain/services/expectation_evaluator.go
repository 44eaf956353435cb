package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
)

const (
	maxExpressionLength = 1000
	maxASTNodes         = 100
)

// ExpectationEvaluator checks user expressions such as `fom > 90 && chi2 < 5`
// against a finished analysis. Compiled programs are cached.
//
// Variables: chi2, fom, mae, total_thickness, fourier_thickness, evaluations,
// layers (list of {material, thickness, density, roughness}) and substrate.
// Functions: thickness(material), density(material), roughness(material).
type ExpectationEvaluator struct {
	programCache map[string]*vm.Program
	cacheMu      sync.RWMutex
}

// NewExpectationEvaluator creates an evaluator with an empty program cache.
func NewExpectationEvaluator() *ExpectationEvaluator {
	return &ExpectationEvaluator{programCache: make(map[string]*vm.Program)}
}

// Evaluate runs every expression against result. An expression that fails to compile,
// does not return a bool or references a missing layer counts as not passed.
func (e *ExpectationEvaluator) Evaluate(result *execution.AnalysisResult, expressions []string) []execution.ExpectationResult {
	if len(expressions) == 0 {
		return nil
	}
	results := make([]execution.ExpectationResult, 0, len(expressions))

	if result.Metrics == nil || len(result.FittedStack) == 0 {
		for _, ex := range expressions {
			results = append(results, execution.ExpectationResult{
				Expression: ex,
				Message:    "no fitted result to evaluate against",
			})
		}
		return results
	}

	env := expectationEnv(result)
	for _, ex := range expressions {
		results = append(results, e.evaluateOne(ex, env))
	}
	return results
}

func (e *ExpectationEvaluator) evaluateOne(expression string, env map[string]interface{}) execution.ExpectationResult {
	res := execution.ExpectationResult{Expression: expression}
	if len(expression) > maxExpressionLength {
		res.Message = fmt.Sprintf("expression too long (max %d chars): %d chars", maxExpressionLength, len(expression))
		return res
	}

	program, err := e.getOrCompile(expression, env)
	if err != nil {
		res.Message = fmt.Sprintf("compile error: %v", err)
		return res
	}
	out, err := expr.Run(program, env)
	if err != nil {
		res.Message = fmt.Sprintf("evaluation error: %v", err)
		return res
	}
	passed, ok := out.(bool)
	if !ok {
		res.Message = fmt.Sprintf("expression returned %T, expected bool", out)
		return res
	}
	res.Passed = passed
	if !passed {
		res.Message = describeFailure(expression, env)
	}
	return res
}

// getOrCompile returns a cached program, compiling it on first use.
func (e *ExpectationEvaluator) getOrCompile(expression string, env map[string]interface{}) (*vm.Program, error) {
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

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
		expr.MaxNodes(maxASTNodes),
	)
	if err != nil {
		return nil, err
	}
	e.programCache[expression] = program
	return program, nil
}

func expectationEnv(result *execution.AnalysisResult) map[string]interface{} {
	layers := make([]map[string]interface{}, len(result.FittedStack))
	total := 0.0
	for i, l := range result.FittedStack {
		layers[i] = layerEnv(l)
		if i < len(result.FittedStack)-1 {
			total += l.EffectiveThickness()
		}
	}

	lookup := func(field string) func(params ...interface{}) (interface{}, error) {
		return func(params ...interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s expects 1 argument", field)
			}
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("%s: argument must be a string", field)
			}
			for _, l := range layers {
				if strings.EqualFold(l["material"].(string), name) {
					return l[field], nil
				}
			}
			return nil, fmt.Errorf("%s: no layer named %q", field, name)
		}
	}

	return map[string]interface{}{
		"chi2":              result.Metrics.Chi2,
		"fom":               result.Metrics.FOM,
		"mae":               result.Metrics.MAE,
		"total_thickness":   total,
		"fourier_thickness": result.FourierThickness,
		"evaluations":       result.Evaluations,
		"layers":            layers,
		"substrate":         layers[len(layers)-1],
		"thickness":         lookup("thickness"),
		"density":           lookup("density"),
		"roughness":         lookup("roughness"),
	}
}

func layerEnv(l entities.MaterialLayer) map[string]interface{} {
	return map[string]interface{}{
		"material":  l.Material,
		"thickness": l.Thickness,
		"density":   l.Density,
		"roughness": l.Roughness,
	}
}

// describeFailure lists the scalar variables an expression mentions, for the failure message.
func describeFailure(expression string, env map[string]interface{}) string {
	var parts []string
	for _, name := range []string{"chi2", "fom", "mae", "total_thickness", "fourier_thickness", "evaluations"} {
		if strings.Contains(expression, name) {
			switch v := env[name].(type) {
			case float64:
				parts = append(parts, fmt.Sprintf("%s=%.4g", name, v))
			default:
				parts = append(parts, fmt.Sprintf("%s=%v", name, v))
			}
		}
	}
	if len(parts) == 0 {
		return "expression evaluated to false"
	}
	return "expression evaluated to false (" + strings.Join(parts, ", ") + ")"
}
