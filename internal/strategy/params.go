package strategy

import (
	"fmt"
	"math"
)

// Params carries named provider parameters. Values come from config files,
// CLI flags or optimizer grids, so numeric types are normalized through the
// accessors below.
type Params map[string]any

// Clone returns a shallow copy. Values are scalars so a shallow copy is a
// full copy.
func (p Params) Clone() Params {
	clone := make(Params, len(p))
	for k, v := range p {
		clone[k] = v
	}
	return clone
}

// Int returns the named parameter as an int, or def when absent.
func (p Params) Int(name string, def int) int {
	switch v := p[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns the named parameter as a float64, or def when absent.
func (p Params) Float(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// Str returns the named parameter as a string, or def when absent.
func (p Params) Str(name string, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

// Bool returns the named parameter as a bool, or def when absent.
func (p Params) Bool(name string, def bool) bool {
	if v, ok := p[name].(bool); ok {
		return v
	}
	return def
}

// ParamKind is the closed set of parameter kinds a component may declare.
type ParamKind int

const (
	KindIntRange ParamKind = iota
	KindFloatRange
	KindChoice
	KindFlag
)

func (k ParamKind) String() string {
	switch k {
	case KindIntRange:
		return "int"
	case KindFloatRange:
		return "float"
	case KindChoice:
		return "choice"
	case KindFlag:
		return "flag"
	default:
		return "unknown"
	}
}

// ParamSpec declares one component parameter. Range bounds apply to the
// numeric kinds, Options to KindChoice.
type ParamSpec struct {
	Name        string
	Kind        ParamKind
	Min         float64
	Max         float64
	Step        float64
	Options     []string
	Default     any
	Optimizable bool
	Description string
}

// Check validates a supplied value against the spec.
func (s ParamSpec) Check(value any) error {
	switch s.Kind {
	case KindIntRange:
		v, ok := asFloat(value)
		if !ok || v != math.Trunc(v) {
			return fmt.Errorf("parameter %q wants an integer, got %v", s.Name, value)
		}
		if v < s.Min || v > s.Max {
			return fmt.Errorf("parameter %q value %v outside [%v, %v]", s.Name, value, s.Min, s.Max)
		}
	case KindFloatRange:
		v, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("parameter %q wants a number, got %v", s.Name, value)
		}
		if v < s.Min || v > s.Max {
			return fmt.Errorf("parameter %q value %v outside [%v, %v]", s.Name, value, s.Min, s.Max)
		}
	case KindChoice:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %q wants one of %v, got %v", s.Name, s.Options, value)
		}
		for _, opt := range s.Options {
			if v == opt {
				return nil
			}
		}
		return fmt.Errorf("parameter %q value %q not in %v", s.Name, v, s.Options)
	case KindFlag:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q wants a bool, got %v", s.Name, value)
		}
	}
	return nil
}

// Grid expands the spec into its candidate values for grid search. Choice
// parameters enumerate their options; numeric ranges step from Min to Max.
func (s ParamSpec) Grid() []any {
	switch s.Kind {
	case KindIntRange:
		step := s.Step
		if step <= 0 {
			step = 1
		}
		var values []any
		for v := s.Min; v <= s.Max; v += step {
			values = append(values, int(v))
		}
		return values
	case KindFloatRange:
		step := s.Step
		if step <= 0 {
			return []any{s.Min, s.Max}
		}
		var values []any
		// Small epsilon so Max survives float accumulation.
		for v := s.Min; v <= s.Max+step/1e6; v += step {
			values = append(values, math.Round(v*100)/100)
		}
		return values
	case KindChoice:
		values := make([]any, len(s.Options))
		for i, opt := range s.Options {
			values[i] = opt
		}
		return values
	case KindFlag:
		return []any{false, true}
	default:
		return nil
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
