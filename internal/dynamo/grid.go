package dynamo

import (
	"math"
	"sort"
)

// Parameter names as they appear in run configuration.
const (
	ParamGamma = "Gamma"
	ParamConst = "const"
)

// Grid is the spatial discretization: N interior points spaced Dx apart.
type Grid struct {
	N  int
	Dx float64
}

// Validate checks the grid against the smallest N a variant supports.
func (g Grid) Validate(minN int) error {
	if minN < 1 {
		minN = 1
	}
	if g.N < minN {
		return ConfigErrorf("N must be >= %d, got %d", minN, g.N)
	}
	if g.Dx <= 0 || math.IsNaN(g.Dx) || math.IsInf(g.Dx, 0) {
		return ConfigErrorf("Dx must be positive, got %g", g.Dx)
	}
	return nil
}

// Params holds the model coefficients. Only keys that were supplied are
// considered present, so variants can report what is missing.
type Params struct {
	Gamma float64
	Const float64
	set   map[string]bool
}

// NewParams builds Params from named values. Unknown names are rejected.
func NewParams(values map[string]float64) (Params, error) {
	p := Params{set: make(map[string]bool, len(values))}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Params{}, ConfigErrorf("parameter %s is not finite", name)
		}
		switch name {
		case ParamGamma:
			p.Gamma = v
		case ParamConst:
			p.Const = v
		default:
			return Params{}, ConfigErrorf("unknown parameter %q", name)
		}
		p.set[name] = true
	}
	return p, nil
}

func (p Params) Has(name string) bool { return p.set[name] }

// Require reports the first missing parameter as a configuration error.
func (p Params) Require(names ...string) error {
	for _, name := range names {
		if !p.set[name] {
			return ConfigErrorf("missing parameter %q", name)
		}
	}
	return nil
}

// Values returns the supplied parameters as a map, for persistence.
func (p Params) Values() map[string]float64 {
	out := make(map[string]float64, len(p.set))
	for _, name := range p.Names() {
		switch name {
		case ParamGamma:
			out[name] = p.Gamma
		case ParamConst:
			out[name] = p.Const
		}
	}
	return out
}

func (p Params) Names() []string {
	names := make([]string, 0, len(p.set))
	for name := range p.set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
