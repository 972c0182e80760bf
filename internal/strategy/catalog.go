package strategy

import (
	"fmt"
	"sort"

	"github.com/amirphl/strategy-lab/internal/candle"
)

// Component is a named signal provider plus its parameter schema.
type Component struct {
	Name        string
	DisplayName string
	Description string
	Params      []ParamSpec
	Run         SignalFunc
}

// FilterComponent is a named filter plus its parameter schema.
type FilterComponent struct {
	Name        string
	DisplayName string
	Description string
	Params      []ParamSpec
	Apply       FilterFunc
}

// FilterConfig selects a filter by name with concrete parameters.
type FilterConfig struct {
	Name   string `yaml:"name" json:"name"`
	Params Params `yaml:"params" json:"params"`
}

// Catalog maps component names to providers and filters. It is built once at
// startup and never mutated afterwards; consumers receive it by injection.
type Catalog struct {
	signals map[string]Component
	filters map[string]FilterComponent
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		signals: make(map[string]Component),
		filters: make(map[string]FilterComponent),
	}
}

// AddSignal registers a signal provider. Duplicate names are an error so a
// typo cannot silently shadow a component.
func (c *Catalog) AddSignal(comp Component) error {
	if comp.Name == "" || comp.Run == nil {
		return fmt.Errorf("AddSignal | component needs a name and a function")
	}
	if _, exists := c.signals[comp.Name]; exists {
		return fmt.Errorf("AddSignal | duplicate signal provider %q", comp.Name)
	}
	c.signals[comp.Name] = comp
	return nil
}

// AddFilter registers a filter component.
func (c *Catalog) AddFilter(comp FilterComponent) error {
	if comp.Name == "" || comp.Apply == nil {
		return fmt.Errorf("AddFilter | component needs a name and a function")
	}
	if _, exists := c.filters[comp.Name]; exists {
		return fmt.Errorf("AddFilter | duplicate filter %q", comp.Name)
	}
	c.filters[comp.Name] = comp
	return nil
}

// Signal looks up a signal provider by name.
func (c *Catalog) Signal(name string) (Component, error) {
	comp, ok := c.signals[name]
	if !ok {
		return Component{}, fmt.Errorf("unknown signal provider %q", name)
	}
	return comp, nil
}

// Filter looks up a filter by name.
func (c *Catalog) Filter(name string) (FilterComponent, error) {
	comp, ok := c.filters[name]
	if !ok {
		return FilterComponent{}, fmt.Errorf("unknown filter %q", name)
	}
	return comp, nil
}

// SignalNames returns registered provider names in sorted order.
func (c *Catalog) SignalNames() []string {
	names := make([]string, 0, len(c.signals))
	for name := range c.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterNames returns registered filter names in sorted order.
func (c *Catalog) FilterNames() []string {
	names := make([]string, 0, len(c.filters))
	for name := range c.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build applies the named provider and then each filter, returning the
// combined frame. Parameters are validated against the component schemas
// before anything runs.
func (c *Catalog) Build(candles []candle.Candle, provider string, params Params, filters []FilterConfig) (*Frame, error) {
	comp, err := c.Signal(provider)
	if err != nil {
		return nil, err
	}
	if err := checkParams(comp.Params, params); err != nil {
		return nil, fmt.Errorf("provider %q: %w", provider, err)
	}
	frame, err := comp.Run(candles, params)
	if err != nil {
		return nil, fmt.Errorf("provider %q: %w", provider, err)
	}
	if err := frame.CheckAlignment(len(candles)); err != nil {
		return nil, fmt.Errorf("provider %q: %w", provider, err)
	}
	for _, fc := range filters {
		fcomp, err := c.Filter(fc.Name)
		if err != nil {
			return nil, err
		}
		if err := checkParams(fcomp.Params, fc.Params); err != nil {
			return nil, fmt.Errorf("filter %q: %w", fc.Name, err)
		}
		if err := fcomp.Apply(candles, frame, fc.Params); err != nil {
			return nil, fmt.Errorf("filter %q: %w", fc.Name, err)
		}
	}
	return frame, nil
}

// checkParams validates supplied values against the schema and rejects
// parameters the component never declared.
func checkParams(specs []ParamSpec, params Params) error {
	byName := make(map[string]ParamSpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}
	for name, value := range params {
		spec, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if err := spec.Check(value); err != nil {
			return err
		}
	}
	return nil
}

// DefaultCatalog builds the catalog of built-in providers and filters.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	// Registration of built-ins cannot collide; ignore the dup-name errors.
	_ = c.AddSignal(shakeoutComponent())
	_ = c.AddSignal(engulfingComponent())
	_ = c.AddSignal(climacticVolumeComponent())
	_ = c.AddFilter(maCrossFilter())
	_ = c.AddFilter(rsiFilter())
	_ = c.AddFilter(sessionFilter())
	return c
}

func directionSpec() ParamSpec {
	return ParamSpec{
		Name:        "direction",
		Kind:        KindChoice,
		Options:     []string{"long", "short", "both"},
		Default:     "both",
		Description: "which signals to generate",
	}
}

// applyDirection blanks the side the direction parameter excludes.
func applyDirection(frame *Frame, direction string) {
	switch direction {
	case "long":
		for i := range frame.Short {
			frame.Short[i] = false
		}
	case "short":
		for i := range frame.Long {
			frame.Long[i] = false
		}
	}
}
