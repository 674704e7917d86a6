package expr

import "fmt"

// Value is the result of an evaluation: either a scalar or a sample vector.
// The zero Value is the scalar 0.
type Value struct {
	vec    []float64
	scalar float64
	isVec  bool
}

// Scalar wraps x as a scalar Value.
func Scalar(x float64) Value { return Value{scalar: x} }

// Vector wraps v as a vector Value. The slice is borrowed, not copied.
func Vector(v []float64) Value { return Value{vec: v, isVec: true} }

// IsVector reports whether the value is a vector.
func (v Value) IsVector() bool { return v.isVec }

// Len returns the element count: 1 for a scalar, len(vec) for a vector.
func (v Value) Len() int {
	if v.isVec {
		return len(v.vec)
	}

	return 1
}

// Float reduces the value to a single number. Vectors of length one are
// accepted; anything longer fails with ErrNotScalar.
func (v Value) Float() (float64, error) {
	if !v.isVec {
		return v.scalar, nil
	}
	if len(v.vec) == 1 {
		return v.vec[0], nil
	}

	return 0, fmt.Errorf("length %d: %w", len(v.vec), ErrNotScalar)
}

// Slice materializes the value as a slice of the given length n. A scalar
// is repeated n times; a vector must already have length n (else ErrShape).
// The returned slice may alias the bound vector; callers that mutate it
// must copy first.
func (v Value) Slice(n int) ([]float64, error) {
	if v.isVec {
		if len(v.vec) != n {
			return nil, fmt.Errorf("length %d, want %d: %w", len(v.vec), n, ErrShape)
		}

		return v.vec, nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v.scalar
	}

	return out, nil
}

// at returns element i under broadcasting: scalars ignore i.
func (v Value) at(i int) float64 {
	if v.isVec {
		return v.vec[i]
	}

	return v.scalar
}

// combine applies f element-wise across two values under broadcasting.
// scalar∘scalar stays scalar; any vector operand fixes the result length.
func combine(l, r Value, f func(a, b float64) float64) (Value, error) {
	if !l.isVec && !r.isVec {
		return Scalar(f(l.scalar, r.scalar)), nil
	}
	n := l.Len()
	if !l.isVec {
		n = r.Len()
	}
	if l.isVec && r.isVec && len(l.vec) != len(r.vec) {
		return Value{}, fmt.Errorf("lengths %d and %d: %w", len(l.vec), len(r.vec), ErrShape)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = f(l.at(i), r.at(i))
	}

	return Vector(out), nil
}

// mapUnary applies f to every element.
func mapUnary(v Value, f func(float64) float64) Value {
	if !v.isVec {
		return Scalar(f(v.scalar))
	}
	out := make([]float64, len(v.vec))
	for i, x := range v.vec {
		out[i] = f(x)
	}

	return Vector(out)
}

// Env is a per-evaluation symbol table. It is rebuilt for every evaluation
// context; there is no global scope.
type Env struct {
	vars map[string]Value
}

// NewEnv returns an empty environment.
func NewEnv() *Env { return &Env{vars: make(map[string]Value)} }

// Bind binds name to an arbitrary Value, replacing any previous binding.
func (e *Env) Bind(name string, v Value) { e.vars[name] = v }

// BindScalar binds name to the scalar x.
func (e *Env) BindScalar(name string, x float64) { e.vars[name] = Scalar(x) }

// BindVector binds name to the borrowed sample vector v.
func (e *Env) BindVector(name string, v []float64) { e.vars[name] = Vector(v) }

// Lookup resolves a name, reporting whether it is bound.
func (e *Env) Lookup(name string) (Value, bool) {
	v, ok := e.vars[name]

	return v, ok
}
