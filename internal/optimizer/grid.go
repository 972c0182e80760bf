// Package optimizer
package optimizer

import (
	"math"
	"sort"

	"github.com/amirphl/strategy-lab/internal/strategy"
)

// Ranges maps a parameter name to its ordered candidate values. The grid is
// the full cartesian product.
type Ranges map[string][]any

// GridSpec describes one parameter axis by min/max/step (numeric types) or
// an option list (choice).
type GridSpec struct {
	Type    string  `yaml:"type" json:"type"` // int, float, choice
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Step    float64 `yaml:"step" json:"step"`
	Options []any   `yaml:"options" json:"options"`
}

// GenerateGrid expands {min,max,step} specs into explicit candidate lists.
func GenerateGrid(specs map[string]GridSpec) Ranges {
	ranges := make(Ranges, len(specs))
	for name, spec := range specs {
		switch spec.Type {
		case "int":
			step := spec.Step
			if step <= 0 {
				step = 1
			}
			var values []any
			for v := spec.Min; v <= spec.Max; v += step {
				values = append(values, int(v))
			}
			ranges[name] = values
		case "float":
			step := spec.Step
			if step <= 0 {
				ranges[name] = []any{spec.Min, spec.Max}
				continue
			}
			var values []any
			for v := spec.Min; v <= spec.Max+step/1e6; v += step {
				values = append(values, math.Round(v*100)/100)
			}
			ranges[name] = values
		case "choice":
			ranges[name] = append([]any(nil), spec.Options...)
		}
	}
	return ranges
}

// ComponentRanges builds a grid from a component's own parameter schema,
// covering every optimizable parameter.
func ComponentRanges(comp strategy.Component) Ranges {
	ranges := make(Ranges)
	for _, spec := range comp.Params {
		if !spec.Optimizable {
			continue
		}
		if values := spec.Grid(); len(values) > 0 {
			ranges[spec.Name] = values
		}
	}
	return ranges
}

// Combinations expands ranges into the cartesian product in a deterministic
// enumeration order: parameter names sorted, the last name varying fastest.
func Combinations(ranges Ranges) []strategy.Params {
	if len(ranges) == 0 {
		return []strategy.Params{{}}
	}
	names := make([]string, 0, len(ranges))
	for name := range ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 1
	for _, name := range names {
		if len(ranges[name]) == 0 {
			return nil
		}
		total *= len(ranges[name])
	}

	combos := make([]strategy.Params, 0, total)
	idx := make([]int, len(names))
	for {
		params := make(strategy.Params, len(names))
		for i, name := range names {
			params[name] = ranges[name][idx[i]]
		}
		combos = append(combos, params)

		// Odometer increment, rightmost digit fastest.
		pos := len(names) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(ranges[names[pos]]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return combos
		}
	}
}
