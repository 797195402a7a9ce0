// Package solver finds roots of square nonlinear systems F(x) = 0 without
// user-supplied derivatives.
//
// [Hybrid] follows Powell's hybrid method: a trust-region dogleg between
// the Gauss-Newton step and the steepest-descent step, with the Jacobian
// approximated by forward differences.
package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dvdm/internal/dynamo"
)

// Func evaluates the residual at x. It must not retain x.
type Func func(x []float64) ([]float64, error)

type Config struct {
	// XTol stops the iteration once a step is smaller than
	// XTol·(‖x‖ + XTol).
	XTol float64
	// FTol accepts x as a root as soon as max|F(x)| <= FTol.
	FTol float64
	// MaxResidual is the largest max|F(x)| accepted when the iteration
	// stops on XTol instead of FTol.
	MaxResidual float64
	// MaxEvals caps residual evaluations, Jacobian columns included.
	// Zero means 200·(n+1).
	MaxEvals int
	// Factor sets the initial trust radius to Factor·‖x0‖ (or Factor
	// when x0 is zero).
	Factor float64
}

func DefaultConfig() Config {
	return Config{
		XTol:        1.49012e-8,
		FTol:        1e-10,
		MaxResidual: 1e-8,
		Factor:      100,
	}
}

// Result of a successful solve.
type Result struct {
	X          []float64
	Residual   float64 // max|F(X)|
	Iterations int
	Evals      int
}

type Hybrid struct {
	cfg Config
}

func NewHybrid(cfg Config) *Hybrid {
	def := DefaultConfig()
	if cfg.XTol <= 0 {
		cfg.XTol = def.XTol
	}
	if cfg.FTol <= 0 {
		cfg.FTol = def.FTol
	}
	if cfg.MaxResidual <= 0 {
		cfg.MaxResidual = def.MaxResidual
	}
	if cfg.Factor <= 0 {
		cfg.Factor = def.Factor
	}
	return &Hybrid{cfg: cfg}
}

func (h *Hybrid) Config() Config { return h.cfg }

// problem tracks the evaluation budget of one solve.
type problem struct {
	f        Func
	n        int
	evals    int
	maxEvals int
}

func (p *problem) eval(x []float64) ([]float64, error) {
	p.evals++
	fx, err := p.f(x)
	if err != nil {
		return nil, err
	}
	if len(fx) != p.n {
		return nil, dynamo.DimensionErrorf("residual length %d, want %d", len(fx), p.n)
	}
	return fx, nil
}

// Solve iterates from x0 until F(x) vanishes. Failure to converge is
// reported as dynamo.ErrSolverDivergence; errors returned by f are passed
// through unchanged.
func (h *Hybrid) Solve(f Func, x0 []float64) (*Result, error) {
	n := len(x0)
	if n == 0 {
		return nil, dynamo.DimensionErrorf("empty initial guess")
	}
	p := &problem{f: f, n: n, maxEvals: h.cfg.MaxEvals}
	if p.maxEvals <= 0 {
		p.maxEvals = 200 * (n + 1)
	}

	x := append([]float64(nil), x0...)
	fx, err := p.eval(x)
	if err != nil {
		return nil, err
	}
	if !finite(fx) {
		return nil, fmt.Errorf("%w: residual not finite at initial guess", dynamo.ErrSolverDivergence)
	}
	if floats.Norm(fx, math.Inf(1)) <= h.cfg.FTol {
		return h.result(x, fx, 0, p), nil
	}

	delta := h.cfg.Factor * floats.Norm(x, 2)
	if delta == 0 {
		delta = h.cfg.Factor
	}

	jac := mat.NewDense(n, n, nil)
	for iter := 1; ; iter++ {
		if err := p.jacobian(x, fx, jac); err != nil {
			return nil, err
		}
		gn, haveGN := gaussNewton(jac, fx)
		fnorm := floats.Norm(fx, 2)

		// Shrink the trust region until a step is accepted; the Jacobian
		// is kept for all trials at this x.
		for {
			if p.evals >= p.maxEvals {
				return nil, fmt.Errorf("%w: %d evaluations exhausted, max|F|=%.3e",
					dynamo.ErrSolverDivergence, p.evals, floats.Norm(fx, math.Inf(1)))
			}

			step := dogleg(jac, fx, gn, haveGN, delta)
			pnorm := floats.Norm(step, 2)

			xn := make([]float64, n)
			floats.AddTo(xn, x, step)
			fn, err := p.eval(xn)
			if err != nil {
				return nil, err
			}

			ratio := 0.0
			if finite(fn) {
				predicted := 1 - sq(floats.Norm(linearized(jac, fx, step), 2)/fnorm)
				actual := 1 - sq(floats.Norm(fn, 2)/fnorm)
				if predicted > 0 {
					ratio = actual / predicted
				}
			}

			switch {
			case ratio < 0.1:
				delta = 0.5 * math.Min(delta, pnorm)
			case ratio >= 0.5:
				delta = math.Max(delta, 2*pnorm)
			}

			if ratio >= 1e-4 {
				x, fx = xn, fn
				resid := floats.Norm(fx, math.Inf(1))
				if resid <= h.cfg.FTol {
					return h.result(x, fx, iter, p), nil
				}
				if pnorm <= h.cfg.XTol*(floats.Norm(x, 2)+h.cfg.XTol) {
					return h.accept(x, fx, iter, p)
				}
				break
			}

			if delta <= h.cfg.XTol*(floats.Norm(x, 2)+h.cfg.XTol) {
				return h.accept(x, fx, iter, p)
			}
		}
	}
}

// accept decides whether a stalled iterate is close enough to a root.
func (h *Hybrid) accept(x, fx []float64, iter int, p *problem) (*Result, error) {
	resid := floats.Norm(fx, math.Inf(1))
	if resid > h.cfg.MaxResidual {
		return nil, fmt.Errorf("%w: no progress after %d iterations, max|F|=%.3e",
			dynamo.ErrSolverDivergence, iter, resid)
	}
	return h.result(x, fx, iter, p), nil
}

func (h *Hybrid) result(x, fx []float64, iter int, p *problem) *Result {
	return &Result{
		X:          x,
		Residual:   floats.Norm(fx, math.Inf(1)),
		Iterations: iter,
		Evals:      p.evals,
	}
}

// jacobian fills jac with forward differences of F around x.
func (p *problem) jacobian(x, fx []float64, jac *mat.Dense) error {
	eps := math.Sqrt(2.220446049250313e-16)
	xh := append([]float64(nil), x...)
	for j := 0; j < p.n; j++ {
		h := eps * math.Max(math.Abs(x[j]), 1)
		xh[j] = x[j] + h
		fh, err := p.eval(xh)
		if err != nil {
			return err
		}
		xh[j] = x[j]
		for i := 0; i < p.n; i++ {
			jac.Set(i, j, (fh[i]-fx[i])/h)
		}
	}
	return nil
}

// gaussNewton solves J·p = −F. ok is false when J is numerically singular.
func gaussNewton(jac *mat.Dense, fx []float64) (step []float64, ok bool) {
	n := len(fx)
	var lu mat.LU
	lu.Factorize(jac)
	if c := lu.Cond(); math.IsInf(c, 1) || c > 1e15 {
		return nil, false
	}
	rhs := make([]float64, n)
	floats.ScaleTo(rhs, -1, fx)
	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, mat.NewVecDense(n, rhs)); err != nil {
		return nil, false
	}
	step = make([]float64, n)
	for i := range step {
		step[i] = sol.AtVec(i)
	}
	if !finite(step) {
		return nil, false
	}
	return step, true
}

// dogleg picks the step inside the trust radius delta: the Gauss-Newton
// step when it fits, otherwise a point on the path from the Cauchy point
// towards it.
func dogleg(jac *mat.Dense, fx, gn []float64, haveGN bool, delta float64) []float64 {
	n := len(fx)
	if haveGN && floats.Norm(gn, 2) <= delta {
		return gn
	}

	// g = Jᵀ·F is the gradient of ½‖F‖².
	var gv mat.VecDense
	gv.MulVec(jac.T(), mat.NewVecDense(n, fx))
	g := gv.RawVector().Data
	gnorm := floats.Norm(g, 2)
	if gnorm == 0 {
		if haveGN {
			out := make([]float64, n)
			floats.ScaleTo(out, delta/floats.Norm(gn, 2), gn)
			return out
		}
		return make([]float64, n)
	}

	var jg mat.VecDense
	jg.MulVec(jac, mat.NewVecDense(n, g))
	jgnorm := floats.Norm(jg.RawVector().Data, 2)
	alpha := delta / gnorm
	if jgnorm > 0 {
		alpha = sq(gnorm) / sq(jgnorm)
	}

	cauchy := make([]float64, n)
	if alpha*gnorm >= delta {
		floats.ScaleTo(cauchy, -delta/gnorm, g)
		return cauchy
	}
	floats.ScaleTo(cauchy, -alpha, g)
	if !haveGN {
		return cauchy
	}

	// Solve ‖pc + τ(gn − pc)‖ = delta for τ in [0, 1].
	d := make([]float64, n)
	floats.SubTo(d, gn, cauchy)
	a := floats.Dot(d, d)
	b := 2 * floats.Dot(cauchy, d)
	c := floats.Dot(cauchy, cauchy) - delta*delta
	tau := 0.0
	if a > 0 {
		tau = (-b + math.Sqrt(math.Max(b*b-4*a*c, 0))) / (2 * a)
	}
	tau = math.Min(math.Max(tau, 0), 1)
	floats.AddScaled(cauchy, tau, d)
	return cauchy
}

// linearized returns F + J·step.
func linearized(jac *mat.Dense, fx, step []float64) []float64 {
	n := len(fx)
	var js mat.VecDense
	js.MulVec(jac, mat.NewVecDense(n, step))
	out := make([]float64, n)
	floats.AddTo(out, fx, js.RawVector().Data)
	return out
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func sq(v float64) float64 { return v * v }
