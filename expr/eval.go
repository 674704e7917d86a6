package expr

import "fmt"

// Eval parses and evaluates src against env. A blank src yields the
// scalar 0. The environment is read-only during evaluation.
// Complexity: O(len(src)) to parse + O(nodes·N) to evaluate, where N is
// the bound vector length.
func Eval(src string, env *Env) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return Value{}, err
	}

	return n.eval(env)
}

// EvalScalar evaluates src and requires a single-number result. Vectors of
// length one coerce; anything longer fails with ErrNotScalar.
func EvalScalar(src string, env *Env) (float64, error) {
	v, err := Eval(src, env)
	if err != nil {
		return 0, err
	}
	x, err := v.Float()
	if err != nil {
		return 0, fmt.Errorf("%q: %w", src, err)
	}

	return x, nil
}

// EvalVector evaluates src and materializes the result at length n,
// broadcasting a scalar result across all n samples.
func EvalVector(src string, env *Env, n int) ([]float64, error) {
	v, err := Eval(src, env)
	if err != nil {
		return nil, err
	}
	out, err := v.Slice(n)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", src, err)
	}

	return out, nil
}

// IsNumber reports whether src is a bare numeric literal (possibly signed),
// and its value when it is. Used by the free-variable accessors: only
// pure-number variables participate in fitting.
func IsNumber(src string) (float64, bool) {
	if isBlank(src) {
		return 0, false
	}
	toks, err := lex(src)
	if err != nil {
		return 0, false
	}
	i := 0
	neg := false
	if toks[i].kind == tokMinus || toks[i].kind == tokPlus {
		neg = toks[i].kind == tokMinus
		i++
	}
	if toks[i].kind != tokNumber || toks[i+1].kind != tokEOF {
		return 0, false
	}
	x := toks[i].num
	if neg {
		x = -x
	}

	return x, true
}
